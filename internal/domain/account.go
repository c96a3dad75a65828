package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balances is the two-column balance model: primary in cents, reward in 1e-8 units.
type Balances struct {
	Balance       int64 `json:"balance"`
	RewardBalance int64 `json:"reward_balance"`
}

// Account represents an accounts row. Only the ledger mutates balances.
type Account struct {
	ID uuid.UUID `json:"id"`
	Balances
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceUpdate describes the per-column deltas applied in one UPDATE.
type BalanceUpdate struct {
	Balance       int64
	RewardBalance int64
}

// HasBalanceDelta returns true if the primary balance changes.
func (u BalanceUpdate) HasBalanceDelta() bool { return u.Balance != 0 }

// HasRewardDelta returns true if the reward balance changes.
func (u BalanceUpdate) HasRewardDelta() bool { return u.RewardBalance != 0 }

// Apply returns the balances after the update.
func (b Balances) Apply(u BalanceUpdate) Balances {
	return Balances{
		Balance:       b.Balance + u.Balance,
		RewardBalance: b.RewardBalance + u.RewardBalance,
	}
}

// NonNegative reports whether both balances are >= 0.
func (b Balances) NonNegative() bool {
	return b.Balance >= 0 && b.RewardBalance >= 0
}
