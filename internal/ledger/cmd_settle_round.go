package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// SettleRoundParams is the single-shot settlement of one round.
type SettleRoundParams struct {
	AccountID    uuid.UUID
	RoundID      uuid.UUID
	Stake        int64
	Win          int64
	JackpotAward int64
	Metadata     json.RawMessage
}

// ExecuteSettleRound debits the stake and credits the win and any jackpot
// award in one balance update. The sufficiency check and the update happen
// under the same account lock.
// Pattern: Validate → Lock → Check → PostLedgerEntry
func (e *Engine) ExecuteSettleRound(ctx context.Context, tx repository.Tx, params SettleRoundParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Stake); err != nil {
		return nil, domain.ErrInvalidRequest(err.Error())
	}
	if params.Win < 0 || params.JackpotAward < 0 {
		return nil, domain.ErrInvalidRequest("win and jackpot award must not be negative")
	}

	account, err := e.lockActive(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("settle round: %w", err)
	}
	if account.Balance < params.Stake {
		return nil, domain.ErrInsufficientFunds()
	}
	if _, ok := domain.AddMinor(account.Balance-params.Stake, params.Win); !ok {
		return nil, domain.ErrInvalidRequest("payout exceeds the supported balance range")
	}
	if _, ok := domain.AddMinor(account.RewardBalance, params.JackpotAward); !ok {
		return nil, domain.ErrInvalidRequest("jackpot award exceeds the supported reward range")
	}

	roundID := params.RoundID
	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"stake":         domain.FormatPrimary(params.Stake),
		"win":           domain.FormatPrimary(params.Win),
		"jackpot_award": domain.FormatReward(params.JackpotAward),
	})

	result, err := e.PostLedgerEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryRoundSettlement,
		Update:    domain.BalanceUpdate{Balance: params.Win - params.Stake, RewardBalance: params.JackpotAward},
		RoundID:   &roundID,
		Metadata:  meta,
	})
	if err != nil {
		return nil, fmt.Errorf("settle round post: %w", err)
	}
	return result, nil
}
