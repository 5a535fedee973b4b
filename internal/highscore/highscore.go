// Package highscore persists the best score reached in each game mode.
package highscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/emojichain/internal/emojichain"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var (
	ErrUnknownBackend = errors.New("unknown high score backend")
	ErrInvalidMode    = errors.New("invalid mode")
	ErrNegativeScore  = errors.New("negative score")
)

// Store keeps one best score per mode. Missing modes read as zero and a
// score only replaces the stored one when it is strictly greater.
type Store interface {
	HighScore(ctx context.Context, mode emojichain.Mode) (int, error)
	UpdateIfNewRecord(ctx context.Context, mode emojichain.Mode, score int) error
	All(ctx context.Context) (map[emojichain.Mode]int, error)
}

// Backends carries the connections a backend may need. Only the one named
// by the chosen backend has to be set.
type Backends struct {
	DB    *sql.DB
	Redis *redis.Client
}

// New returns the store for backend. An empty backend selects sqlite.
func New(backend string, b Backends) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		if b.DB == nil {
			return nil, fmt.Errorf("%s backend: no database", BackendSQLite)
		}
		return NewSQLStore(b.DB), nil
	case BackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("%s backend: no redis client", BackendRedis)
		}
		return NewRedisStore(b.Redis), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func check(mode emojichain.Mode, score int) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
	if score < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeScore, score)
	}
	return nil
}
