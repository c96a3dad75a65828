package projection

import (
	"context"
	"time"

	"github.com/meowbet/core/internal/domain"
)

const (
	jackpotKey = "projection:jackpot"
	// JackpotTTL bounds how stale the public pool figure can get if an
	// invalidation is lost.
	JackpotTTL = 5 * time.Second
)

// PutJackpot caches the public jackpot snapshot.
func PutJackpot(ctx context.Context, store Store, pool *domain.JackpotPool) error {
	return SetJSON(ctx, store, jackpotKey, pool.View(), JackpotTTL)
}

// GetJackpot returns the cached snapshot or an error wrapping ErrMiss.
func GetJackpot(ctx context.Context, store Store) (*domain.JackpotView, error) {
	var v domain.JackpotView
	if err := GetJSON(ctx, store, jackpotKey, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// InvalidateJackpot drops the snapshot after a committed pool change.
func InvalidateJackpot(ctx context.Context, store Store) error {
	return store.Delete(ctx, jackpotKey)
}
