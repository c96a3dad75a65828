package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
)

// BalanceProjection represents a cached account balance.
type BalanceProjection struct {
	AccountID     string `json:"account_id"`
	Balance       string `json:"balance"`
	RewardBalance string `json:"reward_balance"`
	Banned        bool   `json:"banned"`
	UpdatedAt     string `json:"updated_at"`
}

const balanceTTL = 5 * time.Minute

func balanceKey(id uuid.UUID) string {
	return fmt.Sprintf("projection:balance:%s", id)
}

// NewBalanceProjection renders an account row for the cache.
func NewBalanceProjection(a *domain.Account) BalanceProjection {
	return BalanceProjection{
		AccountID:     a.ID.String(),
		Balance:       domain.FormatPrimary(a.Balance),
		RewardBalance: domain.FormatReward(a.RewardBalance),
		Banned:        a.Banned,
	}
}

// UpdateBalance caches an account's balance projection.
func UpdateBalance(ctx context.Context, store Store, a *domain.Account) error {
	p := NewBalanceProjection(a)
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return SetJSON(ctx, store, balanceKey(a.ID), p, balanceTTL)
}

// GetBalance retrieves a cached balance projection.
func GetBalance(ctx context.Context, store Store, id uuid.UUID) (*BalanceProjection, error) {
	var p BalanceProjection
	if err := GetJSON(ctx, store, balanceKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidateBalance removes an account's cached balance.
func InvalidateBalance(ctx context.Context, store Store, id uuid.UUID) error {
	return store.Delete(ctx, balanceKey(id))
}
