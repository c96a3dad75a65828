package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meowbet/core/internal/domain"
)

// PGStore is the pgx-backed Store. Account and jackpot locks are row locks
// (SELECT ... FOR UPDATE) held until the transaction ends.
type PGStore struct {
	pool     *pgxpool.Pool
	accounts accountRepo
	rounds   roundRepo
	jackpot  jackpotRepo
	entries  entryRepo
	outbox   outboxRepo
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// InTx runs fn inside a READ COMMITTED transaction. Row locks provide the
// per-account and jackpot serialization.
func (s *PGStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, s: s})
	})
}

func (s *PGStore) FindAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, s.pool, id)
}

func (s *PGStore) FindRound(ctx context.Context, id uuid.UUID) (*domain.RoundRecord, error) {
	return s.rounds.FindByID(ctx, s.pool, id)
}

func (s *PGStore) ListRounds(ctx context.Context, f RoundFilter) ([]domain.RoundRecord, error) {
	return s.rounds.List(ctx, s.pool, f)
}

func (s *PGStore) ListEntries(ctx context.Context, accountID uuid.UUID, cursor *uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	return s.entries.ListByAccount(ctx, s.pool, accountID, cursor, limit)
}

func (s *PGStore) GetJackpot(ctx context.Context) (*domain.JackpotPool, error) {
	return s.jackpot.Get(ctx, s.pool)
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// FetchUnpublished implements Outbox.
func (s *PGStore) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	return s.outbox.FetchUnpublished(ctx, s.pool, limit)
}

// MarkPublished implements Outbox.
func (s *PGStore) MarkPublished(ctx context.Context, seqs []int64) error {
	return s.outbox.MarkPublished(ctx, s.pool, seqs)
}

type pgTx struct {
	tx pgx.Tx
	s  *PGStore
}

func (t *pgTx) LockAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.s.accounts.LockForUpdate(ctx, t.tx, id)
}

func (t *pgTx) InsertAccount(ctx context.Context, a *domain.Account) error {
	return t.s.accounts.Create(ctx, t.tx, a)
}

func (t *pgTx) UpdateBalances(ctx context.Context, id uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error) {
	return t.s.accounts.UpdateBalances(ctx, t.tx, id, delta)
}

func (t *pgTx) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.Account, error) {
	return t.s.accounts.SetBanned(ctx, t.tx, id, banned)
}

func (t *pgTx) CountRounds(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return t.s.rounds.CountByAccount(ctx, t.tx, accountID)
}

func (t *pgTx) InsertRound(ctx context.Context, r *domain.RoundRecord) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid round record: %w", err)
	}
	return t.s.rounds.Insert(ctx, t.tx, r)
}

func (t *pgTx) LockJackpot(ctx context.Context) (*domain.JackpotPool, error) {
	return t.s.jackpot.LockForUpdate(ctx, t.tx)
}

func (t *pgTx) SaveJackpot(ctx context.Context, p *domain.JackpotPool) error {
	return t.s.jackpot.Save(ctx, t.tx, p)
}

func (t *pgTx) InsertEntry(ctx context.Context, params domain.PostEntryParams, after domain.Balances) (*domain.LedgerEntry, error) {
	return t.s.entries.Insert(ctx, t.tx, params, after)
}

func (t *pgTx) InsertOutbox(ctx context.Context, draft domain.OutboxDraft) error {
	return t.s.outbox.Insert(ctx, t.tx, draft)
}
