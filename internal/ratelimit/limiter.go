// Package ratelimit implements the fixed daily window quota applied to
// unauthenticated callers. Authenticated callers bypass it entirely.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one quota check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store is the backing counter store. Implementations must apply the
// check-and-increment atomically; a read followed by a separate write
// is not acceptable under concurrent requests.
type Store interface {
	// Consume applies the fixed-window policy for one identifier:
	// first observation (or an expired window) starts a fresh window
	// with count 1; within an active window the call increments while
	// count < limit and denies without incrementing once the cap is
	// reached.
	Consume(ctx context.Context, identifier string, limit int, window time.Duration) (Result, error)
}

// Limiter enforces a per-identifier request cap over a fixed window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Check consumes one unit of quota for the identifier.
func (l *Limiter) Check(ctx context.Context, identifier string) (Result, error) {
	return l.store.Consume(ctx, identifier, l.limit, l.window)
}
