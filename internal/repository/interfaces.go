package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meowbet/core/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store is the persistence boundary: a unit of work for writes plus the read side.
type Store interface {
	Reader

	// InTx runs fn in one transaction. fn's writes commit together when it
	// returns nil and are discarded otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes available inside a unit of work. Locks taken through
// it are held until the unit of work ends. Callers lock the account before the
// jackpot.
type Tx interface {
	// LockAccount takes the account's exclusive lock. Returns nil, nil if the
	// account does not exist.
	LockAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// InsertAccount creates a new account row.
	InsertAccount(ctx context.Context, a *domain.Account) error

	// UpdateBalances applies per-column deltas and returns the updated account.
	UpdateBalances(ctx context.Context, id uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error)

	// SetBanned flips the ban flag and returns the updated account.
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.Account, error)

	// CountRounds returns the account's lifetime settled round count.
	CountRounds(ctx context.Context, accountID uuid.UUID) (int64, error)

	// InsertRound persists a settled round.
	InsertRound(ctx context.Context, r *domain.RoundRecord) error

	// LockJackpot takes the jackpot singleton's exclusive lock.
	LockJackpot(ctx context.Context) (*domain.JackpotPool, error)

	// SaveJackpot writes the pool back. The jackpot lock must be held.
	SaveJackpot(ctx context.Context, p *domain.JackpotPool) error

	// InsertEntry appends a ledger entry with the post-update balance snapshot.
	InsertEntry(ctx context.Context, params domain.PostEntryParams, after domain.Balances) (*domain.LedgerEntry, error)

	// InsertOutbox writes an event in the same unit of work as the change it describes.
	InsertOutbox(ctx context.Context, draft domain.OutboxDraft) error
}

// RoundFilter narrows round listings. A nil AccountID lists every account.
type RoundFilter struct {
	AccountID *uuid.UUID
	Game      domain.GameType
	Cursor    *uuid.UUID
	Limit     int
}

// Reader is the read side used by handlers and projections.
type Reader interface {
	// FindAccount returns an account or nil if absent.
	FindAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// FindRound returns a round or nil if absent.
	FindRound(ctx context.Context, id uuid.UUID) (*domain.RoundRecord, error)

	// ListRounds returns rounds newest first with cursor pagination.
	ListRounds(ctx context.Context, f RoundFilter) ([]domain.RoundRecord, error)

	// ListEntries returns an account's ledger entries newest first.
	ListEntries(ctx context.Context, accountID uuid.UUID, cursor *uuid.UUID, limit int) ([]domain.LedgerEntry, error)

	// GetJackpot returns the current pool without locking it.
	GetJackpot(ctx context.Context) (*domain.JackpotPool, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Outbox is the relay side of the event_outbox table.
type Outbox interface {
	// FetchUnpublished returns the oldest unpublished events.
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error)

	// MarkPublished removes relayed events.
	MarkPublished(ctx context.Context, seqs []int64) error
}

const maxListLimit = 200

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
