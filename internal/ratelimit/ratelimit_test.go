package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLimit  = 5
	testWindow = 15 * time.Minute
)

func TestLimiter_FixedWindowCountdown(t *testing.T) {
	store := NewMemoryStore()
	limiter := NewLimiter(store)
	ctx := context.Background()

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		res, err := limiter.Check(ctx, "203.0.113.7", testLimit, testWindow)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining, "attempt %d", i+1)
	}

	// Sixth attempt in the same window is rejected
	res, err := limiter.Check(ctx, "203.0.113.7", testLimit, testWindow)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.True(t, res.ResetAt.After(time.Now()))
}

func TestLimiter_WindowReset(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	limiter := NewLimiter(store)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.Check(ctx, "client", testLimit, testWindow)
		require.NoError(t, err)
	}

	// Window elapses: next attempt opens a fresh window
	now = now.Add(testWindow + time.Second)

	res, err := limiter.Check(ctx, "client", testLimit, testWindow)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestLimiter_RejectedAttemptsDoNotExtendWindow(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	limiter := NewLimiter(store)
	ctx := context.Background()

	first, err := limiter.Check(ctx, "client", testLimit, testWindow)
	require.NoError(t, err)

	// Hammer the limiter near the end of the window
	now = now.Add(testWindow - time.Second)
	for i := 0; i < 10; i++ {
		res, err := limiter.Check(ctx, "client", testLimit, testWindow)
		require.NoError(t, err)
		if i >= 4 {
			assert.False(t, res.Allowed)
		}
		assert.Equal(t, first.ResetAt, res.ResetAt)
	}
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.Check(ctx, "blocked-client", testLimit, testWindow)
		require.NoError(t, err)
	}

	res, err := limiter.Check(ctx, "other-client", testLimit, testWindow)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestMemoryStore_PruneExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	ctx := context.Background()
	_, _, err := store.Incr(ctx, "a", time.Minute)
	require.NoError(t, err)
	_, _, err = store.Incr(ctx, "b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.PruneExpired())
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewLimiter(NewRedisStore(client))
	ctx := context.Background()

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		res, err := limiter.Check(ctx, "203.0.113.7", testLimit, testWindow)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining)
	}

	res, err := limiter.Check(ctx, "203.0.113.7", testLimit, testWindow)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestRedisStore_WindowReset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewLimiter(NewRedisStore(client))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.Check(ctx, "client", testLimit, testWindow)
		require.NoError(t, err)
	}

	// TTL expiry resets the window
	mr.FastForward(testWindow + time.Second)

	res, err := limiter.Check(ctx, "client", testLimit, testWindow)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}
