// Package ratelimit implements fixed-window attempt limiting keyed by
// an opaque identifier (typically a client IP). The window counter
// lives in a pluggable Store so a deployment with multiple server
// instances can share state through Redis; the in-memory store is for
// single-instance deployments and tests.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store counts attempts per identifier within a fixed window.
// Incr returns the attempt count including the current attempt and the
// time at which the current window resets. The first attempt of a new
// window must reset the count to 1.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter applies a fixed-window policy on top of a Store.
type Limiter struct {
	store Store
}

// NewLimiter creates a limiter backed by the given store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check records an attempt for identifier and reports whether it is
// allowed under the policy. Every call counts against the window,
// including calls that end up rejected and calls whose login later
// succeeds; the window boundary is fixed at the first attempt, so
// rejected attempts do not extend the block.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, window time.Duration) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, identifier, window)
	if err != nil {
		return Result{}, err
	}

	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
