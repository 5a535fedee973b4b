package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playperu/emojichain/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %s, want 30m", cfg.SessionTTL)
	}
	if cfg.HighScoreBackend != "sqlite" {
		t.Errorf("HighScoreBackend = %q, want sqlite", cfg.HighScoreBackend)
	}
	if !cfg.Sound {
		t.Error("Sound = false, want true")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MAX_SESSIONS", "7")
	t.Setenv("GENERATOR", "chain")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.MaxSessions != 7 {
		t.Errorf("MaxSessions = %d, want 7", cfg.MaxSessions)
	}
	if cfg.Generator != "chain" {
		t.Errorf("Generator = %q, want chain", cfg.Generator)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SESSION_TTL=5m\nAD_MAX_CONTINUES=2\n"), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	// godotenv sets process variables; register them so they are restored.
	t.Setenv("SESSION_TTL", "")
	t.Setenv("AD_MAX_CONTINUES", "")
	os.Unsetenv("SESSION_TTL")
	os.Unsetenv("AD_MAX_CONTINUES")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %s, want 5m", cfg.SessionTTL)
	}
	if cfg.AdMaxContinues != 2 {
		t.Errorf("AdMaxContinues = %d, want 2", cfg.AdMaxContinues)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero ttl", "SESSION_TTL", "0s"},
		{"no sessions", "MAX_SESSIONS", "0"},
		{"negative continues", "AD_MAX_CONTINUES", "-1"},
		{"bad level", "LOG_LEVEL", "LOUD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("%s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}
