package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shiftline/shiftline/internal/models"
)

const challengeKeyPrefix = "mfa:challenge:"

// RedisChallengeStore keeps challenges in Redis so any instance behind
// a load balancer can finish a challenge another instance started.
// Redis TTLs are the garbage collection; no sweeping is needed.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, challenge *models.MFAChallenge, ttl time.Duration) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	return s.client.Set(ctx, challengeKeyPrefix+challenge.ID, data, ttl).Err()
}

func (s *RedisChallengeStore) Get(ctx context.Context, id string) (*models.MFAChallenge, error) {
	data, err := s.client.Get(ctx, challengeKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrMFAChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge: %w", err)
	}

	var challenge models.MFAChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &challenge, nil
}

// Update rewrites the challenge while preserving the remaining TTL, so
// attempt bookkeeping never extends the challenge's lifetime.
func (s *RedisChallengeStore) Update(ctx context.Context, challenge *models.MFAChallenge) error {
	key := challengeKeyPrefix + challenge.ID

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to read challenge ttl: %w", err)
	}
	if ttl < 0 {
		return models.ErrMFAChallengeNotFound
	}

	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisChallengeStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, challengeKeyPrefix+id).Err()
}
