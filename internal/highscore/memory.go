package highscore

import (
	"context"
	"sync"

	"github.com/playperu/emojichain/internal/emojichain"
)

// Memory is an in-process Store. Scores are lost when the process exits.
type Memory struct {
	mu     sync.RWMutex
	scores map[emojichain.Mode]int
}

func NewMemory() *Memory {
	return &Memory{scores: make(map[emojichain.Mode]int)}
}

func (m *Memory) HighScore(_ context.Context, mode emojichain.Mode) (int, error) {
	if err := check(mode, 0); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scores[mode], nil
}

func (m *Memory) UpdateIfNewRecord(_ context.Context, mode emojichain.Mode, score int) error {
	if err := check(mode, score); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if score > m.scores[mode] {
		m.scores[mode] = score
	}
	return nil
}

func (m *Memory) All(context.Context) (map[emojichain.Mode]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[emojichain.Mode]int, len(m.scores))
	for mode, score := range m.scores {
		out[mode] = score
	}
	return out, nil
}
