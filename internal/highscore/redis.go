package highscore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/emojichain/internal/emojichain"
)

// DefaultRedisKey is the hash holding one field per mode.
const DefaultRedisKey = "emojichain:highscores"

// setMax writes ARGV[2] to field ARGV[1] only when it beats the current value.
var setMax = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local score = tonumber(ARGV[2])
if score > cur then
  redis.call('HSET', KEYS[1], ARGV[1], score)
  return 1
end
return 0
`)

// RedisStore keeps scores in a Redis hash so several server instances share
// one leaderboard.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: DefaultRedisKey}
}

// WithKey returns a copy of the store that uses key instead of the default.
func (s *RedisStore) WithKey(key string) *RedisStore {
	return &RedisStore{client: s.client, key: key}
}

func (s *RedisStore) HighScore(ctx context.Context, mode emojichain.Mode) (int, error) {
	if err := check(mode, 0); err != nil {
		return 0, err
	}
	score, err := s.client.HGet(ctx, s.key, mode.String()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading high score: %w", err)
	}
	return score, nil
}

func (s *RedisStore) UpdateIfNewRecord(ctx context.Context, mode emojichain.Mode, score int) error {
	if err := check(mode, score); err != nil {
		return err
	}
	if err := setMax.Run(ctx, s.client, []string{s.key}, mode.String(), score).Err(); err != nil {
		return fmt.Errorf("updating high score: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) (map[emojichain.Mode]int, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}
	out := make(map[emojichain.Mode]int, len(fields))
	for slug, raw := range fields {
		mode, err := emojichain.ParseMode(slug)
		if err != nil {
			continue
		}
		score, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing score for %s: %w", slug, err)
		}
		out[mode] = score
	}
	return out, nil
}
