package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultJackpotFloor is the pool's reset value, 0.10000000 in reward units.
const DefaultJackpotFloor int64 = 10_000_000

// JackpotPool is the singleton shared prize pool. Amount is in reward units.
type JackpotPool struct {
	Amount       int64      `json:"amount"`
	LastWinnerID *uuid.UUID `json:"last_winner_id,omitempty"`
	LastWonAt    *time.Time `json:"last_won_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// JackpotView is the public wire shape of the pool.
type JackpotView struct {
	Amount       string     `json:"amount"`
	LastWinnerID *uuid.UUID `json:"last_winner_id,omitempty"`
	LastWonAt    *time.Time `json:"last_won_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// View renders p with a decimal-string amount.
func (p *JackpotPool) View() JackpotView {
	return JackpotView{
		Amount:       FormatReward(p.Amount),
		LastWinnerID: p.LastWinnerID,
		LastWonAt:    p.LastWonAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
