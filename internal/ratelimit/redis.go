package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore is a counter backend using the INCR + EXPIRE fixed-window
// pattern, for deployments where several instances share the limits.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore backed by the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr bumps the counter for key. On the first increment the key's
// expiry defines the window boundary; Redis then resets the count by
// expiring the key.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (uint, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			// The key exists but has no TTL and would persist forever.
			// Best effort: delete it so the identity isn't stuck.
			log.Error().Err(err).Str("key", key).Msg("ratelimit: redis EXPIRE failed")
			s.client.Del(ctx, key)
			return 0, err
		}
	}

	return uint(count), nil
}
