// Package migrations holds the goose schema migrations for the high score
// database.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var fs embed.FS

// Run applies all pending migrations against db. Goose progress lines are
// dropped unless WithLogger routes them somewhere.
func Run(db *sql.DB, opts ...Option) error {
	o := options{logger: goose.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	goose.SetBaseFS(fs)
	goose.SetLogger(o.logger)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Version reports the schema version currently applied to db.
func Version(db *sql.DB) (int64, error) {
	goose.SetBaseFS(fs)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("setting dialect: %w", err)
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

type options struct {
	logger goose.Logger
}

type Option func(*options)

// WithLogger sends goose output to logger at info level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = slogLogger{logger} }
}

// slogLogger adapts *slog.Logger to goose.Logger.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Printf(format string, v ...any) {
	s.l.Info(fmt.Sprintf(format, v...), "component", "migrations")
}

func (s slogLogger) Fatalf(format string, v ...any) {
	s.l.Error(fmt.Sprintf(format, v...), "component", "migrations")
}
