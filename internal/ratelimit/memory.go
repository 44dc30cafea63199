package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a process-local Store. Safe for concurrent use within
// one process; limits do not hold across multiple server instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-memory fixed-window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		// New window: the boundary is fixed at this first attempt
		entry = &memoryEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetAt, nil
}

// PruneExpired drops entries whose window has passed and returns how
// many were removed. Called periodically by the background cleanup
// task so distinct identifiers cannot grow the map without bound.
func (s *MemoryStore) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
			pruned++
		}
	}
	return pruned
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
