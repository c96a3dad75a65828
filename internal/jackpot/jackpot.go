// Package jackpot owns the platform-wide prize pool. Every read-modify-write
// happens under the pool's lock inside the caller's unit of work.
package jackpot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

const (
	baseChance      = 0.02
	perBetIncrement = 0.001
	maxChance       = 0.10
)

// Pool applies accrual and award rules to the stored jackpot singleton.
type Pool struct {
	floor       int64
	accrualRate decimal.Decimal
	now         func() time.Time
}

// NewPool returns a pool with the given floor (reward units) and accrual rate.
func NewPool(floor int64, accrualRate decimal.Decimal) *Pool {
	return &Pool{floor: floor, accrualRate: accrualRate, now: time.Now}
}

// NewDefaultPool resets to 0.10000000 and accrues 1% of losing stakes.
func NewDefaultPool() *Pool {
	return NewPool(domain.DefaultJackpotFloor, decimal.RequireFromString("0.01"))
}

// Floor returns the reset value in reward units.
func (p *Pool) Floor() int64 { return p.floor }

// AccrualFor returns the reward units a losing stake adds to the pool.
func (p *Pool) AccrualFor(lossCents int64) (int64, error) {
	return domain.PrimaryToReward(lossCents, p.accrualRate)
}

// Accrue adds the share of a losing stake to the pool and returns the new amount.
func (p *Pool) Accrue(ctx context.Context, tx repository.Tx, lossCents int64) (int64, error) {
	if lossCents < 0 {
		return 0, domain.ErrInvalidRequest("loss amount must not be negative")
	}
	pool, err := tx.LockJackpot(ctx)
	if err != nil {
		return 0, fmt.Errorf("accrue: %w", err)
	}
	share, err := p.AccrualFor(lossCents)
	if err != nil {
		return 0, err
	}
	amount, ok := domain.AddMinor(pool.Amount, share)
	if !ok {
		return 0, domain.ErrInvalidConfiguration("jackpot pool exceeds the supported range")
	}
	pool.Amount = amount
	if pool.Amount < p.floor {
		pool.Amount = p.floor
	}
	pool.UpdatedAt = p.now()
	if err := tx.SaveJackpot(ctx, pool); err != nil {
		return 0, fmt.Errorf("accrue: %w", err)
	}
	return pool.Amount, nil
}

// Award pays the whole pool to winner and resets it to the floor. The returned
// amount is the value read under the lock just before the reset.
func (p *Pool) Award(ctx context.Context, tx repository.Tx, winner uuid.UUID) (int64, error) {
	pool, err := tx.LockJackpot(ctx)
	if err != nil {
		return 0, fmt.Errorf("award: %w", err)
	}
	amount := pool.Amount

	now := p.now()
	pool.Amount = p.floor
	pool.LastWinnerID = &winner
	pool.LastWonAt = &now
	pool.UpdatedAt = now
	if err := tx.SaveJackpot(ctx, pool); err != nil {
		return 0, fmt.Errorf("award: %w", err)
	}
	return amount, nil
}

// Chance is the probability of a jackpot draw succeeding for an account with
// betCount lifetime rounds.
func Chance(betCount int64) float64 {
	if betCount < 0 {
		betCount = 0
	}
	return math.Min(baseChance+float64(betCount)*perBetIncrement, maxChance)
}

// Eligible reports whether the draw scalar wins the jackpot.
func Eligible(scalar float64, betCount int64) bool {
	return scalar < Chance(betCount)
}
