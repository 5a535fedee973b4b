package highscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playperu/emojichain/internal/emojichain"
)

// SQLStore keeps scores in the high_scores table created by the migrations
// package. It works with both SQLite drivers.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) HighScore(ctx context.Context, mode emojichain.Mode) (int, error) {
	if err := check(mode, 0); err != nil {
		return 0, err
	}
	var score int
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM high_scores WHERE mode = ?`, mode.String(),
	).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying high score: %w", err)
	}
	return score, nil
}

func (s *SQLStore) UpdateIfNewRecord(ctx context.Context, mode emojichain.Mode, score int) error {
	if err := check(mode, score); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_scores (mode, score) VALUES (?, ?)
		ON CONFLICT (mode) DO UPDATE
		SET score = excluded.score,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE excluded.score > high_scores.score`,
		mode.String(), score,
	)
	if err != nil {
		return fmt.Errorf("updating high score: %w", err)
	}
	return nil
}

func (s *SQLStore) All(ctx context.Context) (map[emojichain.Mode]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mode, score FROM high_scores`)
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}
	defer rows.Close()

	out := make(map[emojichain.Mode]int)
	for rows.Next() {
		var (
			slug  string
			score int
		)
		if err := rows.Scan(&slug, &score); err != nil {
			return nil, fmt.Errorf("scanning high score: %w", err)
		}
		mode, err := emojichain.ParseMode(slug)
		if err != nil {
			// Rows for modes this build does not know are skipped.
			continue
		}
		out[mode] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating high scores: %w", err)
	}
	return out, nil
}
