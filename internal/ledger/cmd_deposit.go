package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// DepositParams credits an approved deposit.
type DepositParams struct {
	AccountID uuid.UUID
	Amount    int64
	Reference string
	Metadata  json.RawMessage
}

// ExecuteDeposit credits the account's primary balance. Banned accounts can
// still receive deposits; they just cannot wager or withdraw.
// Pattern: Lock → PostLedgerEntry
func (e *Engine) ExecuteDeposit(ctx context.Context, tx repository.Tx, params DepositParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrInvalidRequest(err.Error())
	}

	if _, err := e.LockAccountForUpdate(ctx, tx, params.AccountID); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	meta := ensureJSON(params.Metadata)
	if params.Reference != "" {
		meta = mergeMeta(meta, map[string]interface{}{"reference": params.Reference})
	}

	result, err := e.PostLedgerEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryDeposit,
		Update:    domain.BalanceUpdate{Balance: params.Amount},
		Metadata:  meta,
	})
	if err != nil {
		return nil, fmt.Errorf("deposit post: %w", err)
	}
	return result, nil
}

func mergeMeta(base json.RawMessage, extra map[string]interface{}) json.RawMessage {
	merged := make(map[string]interface{})
	if len(base) > 0 {
		_ = json.Unmarshal(base, &merged)
	}
	for k, v := range extra {
		merged[k] = v
	}
	out, _ := json.Marshal(merged)
	return out
}

func ensureJSON(data json.RawMessage) json.RawMessage {
	if data == nil {
		return json.RawMessage(`{}`)
	}
	return data
}
