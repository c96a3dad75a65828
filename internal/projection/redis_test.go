package projection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowbet/core/internal/domain"
)

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisStore(rdb, "meowbet:")
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	mr, store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("hello"), 0))
	assert.True(t, mr.Exists("meowbet:k1"), "keys carry the prefix")

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v"), 5*time.Second))
	assert.Equal(t, 5*time.Second, mr.TTL("meowbet:k1"))

	mr.FastForward(5 * time.Second)
	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_UnreachableIsNotAMiss(t *testing.T) {
	mr, store := newRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "k1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, store.Set(context.Background(), "k1", []byte("v"), 0))
}

func TestRedisStore_Projections(t *testing.T) {
	_, store := newRedisStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, UpdateBalance(ctx, store, &domain.Account{
		ID:       id,
		Balances: domain.Balances{Balance: 11_000, RewardBalance: 10_000_000},
	}))
	got, err := GetBalance(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, "110.00", got.Balance)
	assert.Equal(t, "0.10000000", got.RewardBalance)

	require.NoError(t, PutJackpot(ctx, store, &domain.JackpotPool{Amount: 110_000_000, UpdatedAt: time.Now()}))
	v, err := GetJackpot(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "1.10000000", v.Amount)

	require.NoError(t, InvalidateJackpot(ctx, store))
	_, err = GetJackpot(ctx, store)
	assert.ErrorIs(t, err, ErrMiss)
}
