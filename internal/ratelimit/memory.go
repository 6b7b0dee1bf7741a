package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the in-process counter store. State is per-process:
// with multiple server processes each holds its own counts, which the
// daily-quota policy accepts.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	sweepSize int

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates a store that sweeps expired entries once the
// map grows past sweepSize. The sweep is an optimization only; expired
// entries self-correct on next access.
func NewMemoryStore(sweepSize int) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]entry),
		sweepSize: sweepSize,
		now:       time.Now,
	}
}

func (s *MemoryStore) Consume(ctx context.Context, identifier string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if s.sweepSize > 0 && len(s.entries) > s.sweepSize {
		for key, e := range s.entries {
			if e.resetAt.Before(now) {
				delete(s.entries, key)
			}
		}
	}

	e, exists := s.entries[identifier]
	if !exists || e.resetAt.Before(now) {
		resetAt := now.Add(window)
		s.entries[identifier] = entry{count: 1, resetAt: resetAt}
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: resetAt}, nil
	}

	if e.count >= limit {
		// Deny without incrementing; counts stay capped.
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}, nil
	}

	e.count++
	s.entries[identifier] = e
	return Result{Allowed: true, Remaining: limit - e.count, ResetAt: e.resetAt}, nil
}

// Len reports the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
