package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// ConvertRewardParams converts reward units (jackpot winnings) into primary balance.
type ConvertRewardParams struct {
	AccountID uuid.UUID
	Amount    int64
}

// ExecuteConvertReward moves Amount reward units into the primary balance at
// the engine's conversion rate, in one entry.
func (e *Engine) ExecuteConvertReward(ctx context.Context, tx repository.Tx, params ConvertRewardParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrInvalidRequest(err.Error())
	}

	credit, err := domain.RewardToPrimary(params.Amount, e.conversionRate)
	if err != nil {
		return nil, err
	}
	if credit <= 0 {
		return nil, domain.ErrInvalidRequest("amount converts to less than the smallest currency unit")
	}

	account, err := e.lockActive(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("convert reward: %w", err)
	}
	if account.RewardBalance < params.Amount {
		return nil, domain.ErrInsufficientFunds()
	}

	result, err := e.PostLedgerEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryRewardConversion,
		Update:    domain.BalanceUpdate{Balance: credit, RewardBalance: -params.Amount},
		Metadata: mergeMeta(nil, map[string]interface{}{
			"rate":      e.conversionRate.String(),
			"converted": domain.FormatReward(params.Amount),
			"credited":  domain.FormatPrimary(credit),
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("convert reward post: %w", err)
	}
	return result, nil
}
