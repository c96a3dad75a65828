package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// DefaultStartingBalance is the primary balance a new account opens with (1000.00).
const DefaultStartingBalance int64 = 100_000

// OpenAccountParams creates an account. A zero ID is replaced with a new one.
type OpenAccountParams struct {
	ID              uuid.UUID
	StartingBalance int64
}

// ExecuteOpenAccount inserts the account with zero balances and posts the
// starting balance as its first entry, so the ledger explains every unit.
func (e *Engine) ExecuteOpenAccount(ctx context.Context, tx repository.Tx, params OpenAccountParams) (*domain.CommandResult, error) {
	if params.StartingBalance < 0 {
		return nil, domain.ErrInvalidRequest("starting balance must not be negative")
	}
	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	now := time.Now()
	account := &domain.Account{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := tx.InsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}
	if _, err := e.LockAccountForUpdate(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}

	result, err := e.PostLedgerEntry(ctx, tx, domain.PostEntryParams{
		AccountID: id,
		Type:      domain.EntryAccountOpened,
		Update:    domain.BalanceUpdate{Balance: params.StartingBalance},
		Metadata:  ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("open account post: %w", err)
	}

	opened := domain.NewAccountOpenedEvent(result.Account)
	if err := tx.InsertOutbox(ctx, opened); err != nil {
		return nil, fmt.Errorf("open account event: %w", err)
	}
	result.Events = append(result.Events, opened)
	return result, nil
}

// SetBanned flips an account's ban flag. Accounts are never deleted.
func (e *Engine) SetBanned(ctx context.Context, tx repository.Tx, id uuid.UUID, banned bool) (*domain.Account, error) {
	if _, err := e.LockAccountForUpdate(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("set banned: %w", err)
	}
	account, err := tx.SetBanned(ctx, id, banned)
	if err != nil {
		return nil, fmt.Errorf("set banned: %w", err)
	}
	if err := tx.InsertOutbox(ctx, domain.NewAccountBannedEvent(id, banned)); err != nil {
		return nil, fmt.Errorf("set banned event: %w", err)
	}
	return account, nil
}
