package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/domain"
)

func TestInMemoryStore_SetAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, "k1", []byte("hello"), 0)
	require.NoError(t, err)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestInMemoryStore_KeyNotFound(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 0)
	_ = store.Delete(ctx, "k1")

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), time.Second)
	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestBalanceProjection_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	id := uuid.New()

	err := UpdateBalance(ctx, store, &domain.Account{
		ID:       id,
		Balances: domain.Balances{Balance: 11_000, RewardBalance: 10_000_000},
	})
	require.NoError(t, err)

	got, err := GetBalance(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, "110.00", got.Balance)
	assert.Equal(t, "0.10000000", got.RewardBalance)
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestBalanceProjection_Invalidate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	id := uuid.New()

	_ = UpdateBalance(ctx, store, &domain.Account{ID: id})
	_ = InvalidateBalance(ctx, store, id)

	_, err := GetBalance(ctx, store, id)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestJackpotSnapshot(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := GetJackpot(ctx, store)
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, PutJackpot(ctx, store, &domain.JackpotPool{Amount: 110_000_000, UpdatedAt: now}))
	v, err := GetJackpot(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "1.10000000", v.Amount)

	now = now.Add(JackpotTTL + time.Millisecond)
	_, err = GetJackpot(ctx, store)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, PutJackpot(ctx, store, &domain.JackpotPool{Amount: 1}))
	require.NoError(t, InvalidateJackpot(ctx, store))
	_, err = GetJackpot(ctx, store)
	assert.ErrorIs(t, err, ErrMiss)
}
