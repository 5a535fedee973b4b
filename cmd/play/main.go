// Command play runs EmojiChain in the terminal against a local session.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/emojichain/internal/adpolicy"
	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/config"
	"github.com/playperu/emojichain/internal/database"
	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/feedback"
	"github.com/playperu/emojichain/internal/generator"
	"github.com/playperu/emojichain/internal/highscore"
	"github.com/playperu/emojichain/internal/migrations"
	"github.com/playperu/emojichain/internal/session"
)

const soundVolume = -1.0

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The terminal belongs to the game, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	var cat *catalog.Catalog
	if cfg.CatalogPath == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
	}
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	strategy, err := generator.New(cfg.Generator, rng, cat)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	scores, closeScores, err := openScores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeScores()

	sinks := feedback.Multi{feedback.NewLogger(logger)}
	if cfg.Sound {
		spk := feedback.NewSpeaker(soundVolume)
		if err := spk.Initialize(); err != nil {
			logger.Warn("sound disabled", "error", err)
		} else {
			defer spk.Close()
			sinks = append(sinks, spk)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}

	ads := adpolicy.New(cfg.AdMaxContinues, cfg.AdInterstitialEvery)
	sess := session.New(cat,
		session.WithRand(rng),
		session.WithStrategy(strategy),
		session.WithHighScores(scores),
		session.WithFeedback(sinks),
		session.WithAdPolicy(ads),
		session.WithLogger(logger.With("component", "session")),
		session.WithObserver(func(st emojichain.GameState) {
			// A full queue only drops a redraw hint; the loop reads State().
			_ = screen.PostEvent(tcell.NewEventInterrupt(st))
		}),
	)
	defer sess.Close()

	game := newApp(screen, sess, ads)

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan tcell.Event, 100)

	g.Go(func() error {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return nil
			}
			select {
			case events <- ev:
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		defer screen.Fini()
		return game.loop(gctx, events)
	})

	return g.Wait()
}

// openScores picks the high score backend named by the config. The
// returned func releases the underlying connection.
func openScores(ctx context.Context, logger *slog.Logger, cfg *config.Config) (highscore.Store, func(), error) {
	backend := cfg.HighScoreBackend
	switch backend {
	case highscore.BackendMemory:
		s, err := highscore.New(backend, highscore.Backends{})
		return s, func() {}, err
	case highscore.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		s, err := highscore.New(backend, highscore.Backends{Redis: rdb})
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return s, func() { rdb.Close() }, nil
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating database dir: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	if err := migrations.Run(db, migrations.WithLogger(logger)); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	s, err := highscore.New(backend, highscore.Backends{DB: db})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}
