package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/shiftline/shiftline/internal/models"
)

// ChallengeStore holds in-flight MFA challenges. Challenges are
// short-lived and attempt-limited, so the store only needs plain
// key/value semantics with a TTL; durability is not a requirement.
type ChallengeStore interface {
	Put(ctx context.Context, challenge *models.MFAChallenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.MFAChallenge, error)
	Update(ctx context.Context, challenge *models.MFAChallenge) error
	Delete(ctx context.Context, id string) error
}

type memoryChallengeEntry struct {
	challenge models.MFAChallenge
	expiresAt time.Time
}

// MemoryChallengeStore is the single-process store used when no Redis
// address is configured. Expired entries are dropped on read and swept
// periodically by the cleanup manager.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]memoryChallengeEntry

	now func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]memoryChallengeEntry),
		now:     time.Now,
	}
}

func (s *MemoryChallengeStore) Put(_ context.Context, challenge *models.MFAChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[challenge.ID] = memoryChallengeEntry{
		challenge: *challenge,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, id string) (*models.MFAChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, models.ErrMFAChallengeNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, models.ErrMFAChallengeNotFound
	}

	challenge := entry.challenge
	return &challenge, nil
}

func (s *MemoryChallengeStore) Update(_ context.Context, challenge *models.MFAChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[challenge.ID]
	if !ok {
		return models.ErrMFAChallengeNotFound
	}
	entry.challenge = *challenge
	s.entries[challenge.ID] = entry
	return nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// PruneExpired removes entries past their store deadline and returns
// how many were dropped.
func (s *MemoryChallengeStore) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
