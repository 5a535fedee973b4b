package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	// LogFile is used by the terminal client, whose stdout is the screen.
	LogFile string `env:"LOG_FILE"`

	DBDriver         string `env:"DB_DRIVER" envDefault:"libsql"`
	DBPath           string `env:"DB_PATH" envDefault:"data/emojichain.db"`
	HighScoreBackend string `env:"HIGHSCORE_BACKEND" envDefault:"sqlite"`
	RedisURL         string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"dev-secret-change-me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	MaxSessions   int           `env:"MAX_SESSIONS" envDefault:"1000"`

	CatalogPath string `env:"CATALOG_PATH"`
	// WebDir is an optional browser client served by the HTTP server.
	WebDir    string `env:"WEB_DIR"`
	Generator string `env:"GENERATOR" envDefault:"question"`

	AdMaxContinues      int `env:"AD_MAX_CONTINUES" envDefault:"1"`
	AdInterstitialEvery int `env:"AD_INTERSTITIAL_EVERY" envDefault:"3"`

	Sound bool `env:"SOUND" envDefault:"true"`
}

// Load reads an optional .env file (or the given files) into the process
// environment and parses the configuration from it. Variables that are
// already set win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.SessionTTL <= 0:
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	case c.MaxSessions <= 0:
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	case c.AdMaxContinues < 0:
		return fmt.Errorf("AD_MAX_CONTINUES must not be negative, got %d", c.AdMaxContinues)
	case c.AdInterstitialEvery < 0:
		return fmt.Errorf("AD_INTERSTITIAL_EVERY must not be negative, got %d", c.AdInterstitialEvery)
	}
	return nil
}
