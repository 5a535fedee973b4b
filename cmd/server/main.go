package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/config"
	"github.com/playperu/emojichain/internal/database"
	"github.com/playperu/emojichain/internal/generator"
	"github.com/playperu/emojichain/internal/handler/health"
	"github.com/playperu/emojichain/internal/highscore"
	"github.com/playperu/emojichain/internal/migrations"
	"github.com/playperu/emojichain/internal/server"
	"github.com/playperu/emojichain/internal/session"
)

// tokenLifetime bounds how long a client can keep using one session token.
const tokenLifetime = 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded", "categories", len(cat.Names()), "path", cfg.CatalogPath)

	newStrategy, err := generator.NewFactory(cfg.Generator, cat)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	checks := map[string]health.Checker{}
	backends := highscore.Backends{}

	switch cfg.HighScoreBackend {
	case highscore.BackendRedis:
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")
		backends.Redis = rdb
		checks["redis"] = health.Redis(rdb)
	case highscore.BackendMemory:
		logger.Warn("high scores are kept in memory only")
	default:
		db, err := openSQLite(ctx, logger, cfg.DBDriver, cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		backends.DB = db
		checks["sqlite"] = health.DB(db)
	}

	scores, err := highscore.New(cfg.HighScoreBackend, backends)
	if err != nil {
		return fmt.Errorf("creating high score store: %w", err)
	}

	tokens, err := server.NewTokens(cfg.SessionSecret, tokenLifetime)
	if err != nil {
		return fmt.Errorf("creating session tokens: %w", err)
	}

	newSession := func(opts ...session.Option) *session.Session {
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		base := []session.Option{
			session.WithRand(rng),
			session.WithStrategy(newStrategy(rng)),
			session.WithHighScores(scores),
			session.WithLogger(logger.With("component", "session")),
		}
		return session.New(cat, append(base, opts...)...)
	}

	broker := server.NewBroker()
	hub := server.NewHub(server.HubConfig{
		TTL:                 cfg.SessionTTL,
		MaxSessions:         cfg.MaxSessions,
		AdMaxContinues:      cfg.AdMaxContinues,
		AdInterstitialEvery: cfg.AdInterstitialEvery,
	}, broker, newSession, logger)

	checks["sessions"] = health.CheckerFunc(func(context.Context) error {
		if n := hub.Len(); n >= cfg.MaxSessions {
			return fmt.Errorf("%d of %d sessions in use", n, cfg.MaxSessions)
		}
		return nil
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Hub:     hub,
		Broker:  broker,
		Tokens:  tokens,
		Scores:  scores,
		Catalog: cat,
		WebDir:  cfg.WebDir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func openSQLite(ctx context.Context, logger *slog.Logger, driver, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}
	db, err := database.Open(ctx, driver, path)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	if err := migrations.Run(db, migrations.WithLogger(logger)); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "driver", driver, "path", path)
	return db, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
