package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:"

// RedisStore shares fixed-window counters across server instances.
// Window expiry rides on Redis key TTLs, so there is no separate
// garbage collection.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed fixed-window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := redisKeyPrefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit incr: %w", err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("rate limit expire: %w", err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// A counter without TTL survived a crash between INCR and PEXPIRE;
		// reattach the window rather than blocking the key forever.
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = window
	}

	return count, time.Now().Add(ttl), nil
}
