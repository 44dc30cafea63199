package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChallenge(id string) *models.MFAChallenge {
	return &models.MFAChallenge{
		ID:          id,
		UserID:      "user-1",
		MethodID:    "method-1",
		MethodType:  models.MFAMethodAuthenticator,
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		MaxAttempts: 3,
	}
}

func TestMemoryChallengeStore_PutGet(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("ch-1"), 5*time.Minute))

	got, err := store.Get(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, models.MFAMethodAuthenticator, got.MethodType)
}

func TestMemoryChallengeStore_GetMissing(t *testing.T) {
	store := NewMemoryChallengeStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestMemoryChallengeStore_TTLExpiry(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, testChallenge("ch-1"), 5*time.Minute))

	now = now.Add(5*time.Minute + time.Second)

	_, err := store.Get(ctx, "ch-1")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestMemoryChallengeStore_UpdateRoundTrip(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	ch := testChallenge("ch-1")
	require.NoError(t, store.Put(ctx, ch, 5*time.Minute))

	ch.Attempts = 2
	require.NoError(t, store.Update(ctx, ch))

	got, err := store.Get(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
}

func TestMemoryChallengeStore_UpdateMissing(t *testing.T) {
	store := NewMemoryChallengeStore()

	err := store.Update(context.Background(), testChallenge("nope"))
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestMemoryChallengeStore_PruneExpired(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, testChallenge("old"), time.Minute))
	require.NoError(t, store.Put(ctx, testChallenge("fresh"), time.Hour))

	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, store.PruneExpired())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func newRedisChallengeStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChallengeStore(client), mr
}

func TestRedisChallengeStore_PutGet(t *testing.T) {
	store, _ := newRedisChallengeStore(t)
	ctx := context.Background()

	ch := testChallenge("ch-1")
	ch.CodeHash = "some-hash"
	require.NoError(t, store.Put(ctx, ch, 5*time.Minute))

	got, err := store.Get(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, ch.UserID, got.UserID)
	assert.Equal(t, ch.CodeHash, got.CodeHash)
	assert.Equal(t, ch.MaxAttempts, got.MaxAttempts)
}

func TestRedisChallengeStore_TTLExpiry(t *testing.T) {
	store, mr := newRedisChallengeStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("ch-1"), 5*time.Minute))

	mr.FastForward(5*time.Minute + time.Second)

	_, err := store.Get(ctx, "ch-1")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestRedisChallengeStore_UpdateKeepsTTL(t *testing.T) {
	store, mr := newRedisChallengeStore(t)
	ctx := context.Background()

	ch := testChallenge("ch-1")
	require.NoError(t, store.Put(ctx, ch, 5*time.Minute))

	mr.FastForward(4 * time.Minute)

	ch.Attempts = 1
	require.NoError(t, store.Update(ctx, ch))

	// A minute of original lifetime remained; the update must not
	// have reset the clock to five minutes.
	mr.FastForward(time.Minute + time.Second)

	_, err := store.Get(ctx, "ch-1")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestRedisChallengeStore_Delete(t *testing.T) {
	store, _ := newRedisChallengeStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("ch-1"), 5*time.Minute))
	require.NoError(t, store.Delete(ctx, "ch-1"))

	_, err := store.Get(ctx, "ch-1")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}
