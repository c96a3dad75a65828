package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/repository"
)

// DefaultConversionRate is how many primary units one reward unit converts to.
var DefaultConversionRate = decimal.NewFromInt(5000)

// Engine is the only writer of account balances. It provides 2 foundational
// operations every command builds on:
//  1. LockAccountForUpdate — exclusive per-account lock
//  2. PostLedgerEntry — balance update + append-only entry + outbox event
type Engine struct {
	conversionRate decimal.Decimal
}

// NewEngine creates a ledger engine. conversionRate prices reward units in
// primary currency for ExecuteConvertReward.
func NewEngine(conversionRate decimal.Decimal) *Engine {
	return &Engine{conversionRate: conversionRate}
}

// LockAccountForUpdate acquires the account lock and returns the account.
// Must be called within a unit of work.
func (e *Engine) LockAccountForUpdate(ctx context.Context, tx repository.Tx, id uuid.UUID) (*domain.Account, error) {
	a, err := tx.LockAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if a == nil {
		return nil, domain.ErrAccountNotFound(id.String())
	}
	return a, nil
}

// lockActive locks the account and rejects banned accounts.
func (e *Engine) lockActive(ctx context.Context, tx repository.Tx, id uuid.UUID) (*domain.Account, error) {
	a, err := e.LockAccountForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a.Banned {
		return nil, domain.ErrAccountBanned()
	}
	return a, nil
}

// PostLedgerEntry atomically updates balances and appends a ledger entry.
// Every command delegates to this.
//
// Steps:
//  1. Update balances with server-side arithmetic
//  2. Insert the entry with the post-update balance snapshot
//  3. Insert the wallet outbox event
//
// All 3 steps run within the caller's unit of work, which must already hold
// the account lock.
func (e *Engine) PostLedgerEntry(ctx context.Context, tx repository.Tx, params domain.PostEntryParams) (*domain.CommandResult, error) {
	updated, err := tx.UpdateBalances(ctx, params.AccountID, params.Update)
	if err != nil {
		return nil, fmt.Errorf("update balances: %w", err)
	}
	// Commands check funds before posting; this catches a caller that did not.
	if !updated.NonNegative() {
		return nil, domain.ErrInsufficientFunds()
	}

	entry, err := tx.InsertEntry(ctx, params, updated.Balances)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	event := domain.NewEntryPostedEvent(entry)
	if err := tx.InsertOutbox(ctx, event); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return &domain.CommandResult{
		Entry:   entry,
		Account: updated,
		Events:  []domain.OutboxDraft{event},
	}, nil
}
