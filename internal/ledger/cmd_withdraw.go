package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// WithdrawParams debits a requested withdrawal.
type WithdrawParams struct {
	AccountID uuid.UUID
	Amount    int64
	Metadata  json.RawMessage
}

// ExecuteWithdraw debits the primary balance. Payout to the player happens
// outside this service.
func (e *Engine) ExecuteWithdraw(ctx context.Context, tx repository.Tx, params WithdrawParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrInvalidRequest(err.Error())
	}

	account, err := e.lockActive(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if account.Balance < params.Amount {
		return nil, domain.ErrInsufficientFunds()
	}

	result, err := e.PostLedgerEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryWithdrawal,
		Update:    domain.BalanceUpdate{Balance: -params.Amount},
		Metadata:  ensureJSON(params.Metadata),
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw post: %w", err)
	}
	return result, nil
}
