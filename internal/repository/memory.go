package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
)

// ErrLockOrder is returned when a unit of work locks an account after it
// already holds the jackpot.
var ErrLockOrder = errors.New("account lock requested while holding the jackpot lock")

// MemoryStore is an in-process Store. Each account has its own lock and the
// jackpot has one more; writes are staged on the unit of work and applied
// together on commit, so a failed unit of work leaves nothing behind.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	rounds   []domain.RoundRecord
	counts   map[uuid.UUID]int64
	entries  []domain.LedgerEntry
	jackpot  domain.JackpotPool
	outbox   []domain.OutboxRecord
	seq      int64

	outboxLimit int
	dropped     int64

	locksMu     sync.Mutex
	accountLock map[uuid.UUID]chan struct{}
	jackpotLock chan struct{}

	faultMu sync.Mutex
	fault   func(op string) error
}

// NewMemoryStore returns an empty store with the jackpot at its floor.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[uuid.UUID]domain.Account),
		counts:      make(map[uuid.UUID]int64),
		jackpot:     domain.JackpotPool{Amount: domain.DefaultJackpotFloor, UpdatedAt: time.Now()},
		accountLock: make(map[uuid.UUID]chan struct{}),
		jackpotLock: make(chan struct{}, 1),
	}
}

// SetFault installs a hook consulted before every Tx write; a non-nil return
// fails that write. Used to simulate storage outages.
func (s *MemoryStore) SetFault(fn func(op string) error) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

// SetOutboxLimit keeps at most n unpublished events, dropping the oldest once
// the buffer is full. Zero means unbounded. For processes with no relay.
func (s *MemoryStore) SetOutboxLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outboxLimit = n
	s.trimOutbox()
}

// DroppedEvents counts events discarded by the outbox limit.
func (s *MemoryStore) DroppedEvents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// trimOutbox must be called with s.mu held.
func (s *MemoryStore) trimOutbox() {
	if s.outboxLimit <= 0 || len(s.outbox) <= s.outboxLimit {
		return
	}
	over := len(s.outbox) - s.outboxLimit
	s.dropped += int64(over)
	s.outbox = append(s.outbox[:0], s.outbox[over:]...)
}

func (s *MemoryStore) check(op string) error {
	s.faultMu.Lock()
	fn := s.fault
	s.faultMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

func (s *MemoryStore) lockFor(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.accountLock[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.accountLock[id] = ch
	}
	return ch
}

func acquire(ctx context.Context, ch chan struct{}) error {
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InTx runs fn with a fresh unit of work. Locks are released when fn returns.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		s:        s,
		held:     make(map[uuid.UUID]chan struct{}),
		accounts: make(map[uuid.UUID]*domain.Account),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := s.check("Commit"); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) FindAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) FindRound(_ context.Context, id uuid.UUID) (*domain.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rounds {
		if s.rounds[i].ID == id {
			r := s.rounds[i]
			return &r, nil
		}
	}
	return nil, nil
}

// ListRounds walks rounds newest first; insertion order is commit order.
func (s *MemoryStore) ListRounds(_ context.Context, f RoundFilter) ([]domain.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := normalizeLimit(f.Limit)
	started := f.Cursor == nil
	var out []domain.RoundRecord
	for i := len(s.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.rounds[i]
		if !started {
			started = r.ID == *f.Cursor
			continue
		}
		if f.AccountID != nil && r.AccountID != *f.AccountID {
			continue
		}
		if f.Game != "" && r.Game != f.Game {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, accountID uuid.UUID, cursor *uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = normalizeLimit(limit)
	started := cursor == nil
	var out []domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if !started {
			started = e.ID == *cursor
			continue
		}
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetJackpot(_ context.Context) (*domain.JackpotPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.jackpot
	return &p, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return s.check("Ping") }

// FetchUnpublished implements Outbox.
func (s *MemoryStore) FetchUnpublished(_ context.Context, limit int) ([]domain.OutboxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.outbox) {
		limit = len(s.outbox)
	}
	out := make([]domain.OutboxRecord, limit)
	copy(out, s.outbox[:limit])
	return out, nil
}

// MarkPublished implements Outbox.
func (s *MemoryStore) MarkPublished(_ context.Context, seqs []int64) error {
	done := make(map[int64]bool, len(seqs))
	for _, n := range seqs {
		done[n] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	for _, rec := range s.outbox {
		if !done[rec.Seq] {
			kept = append(kept, rec)
		}
	}
	s.outbox = kept
	return nil
}

type memTx struct {
	s *MemoryStore

	held        map[uuid.UUID]chan struct{}
	jackpotHeld bool

	accounts map[uuid.UUID]*domain.Account
	rounds   []domain.RoundRecord
	entries  []domain.LedgerEntry
	jackpot  *domain.JackpotPool
	outbox   []domain.OutboxDraft
}

func (t *memTx) lockAccount(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.held[id]; ok {
		return nil
	}
	if t.jackpotHeld {
		return ErrLockOrder
	}
	ch := t.s.lockFor(id)
	if err := acquire(ctx, ch); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	t.held[id] = ch
	return nil
}

func (t *memTx) LockAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if err := t.lockAccount(ctx, id); err != nil {
		return nil, err
	}
	if a, ok := t.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	committed, err := t.s.FindAccount(ctx, id)
	if err != nil || committed == nil {
		return nil, err
	}
	t.accounts[id] = committed
	cp := *committed
	return &cp, nil
}

func (t *memTx) InsertAccount(ctx context.Context, a *domain.Account) error {
	if err := t.s.check("InsertAccount"); err != nil {
		return err
	}
	if err := t.lockAccount(ctx, a.ID); err != nil {
		return err
	}
	if existing, _ := t.s.FindAccount(ctx, a.ID); existing != nil || t.accounts[a.ID] != nil {
		return fmt.Errorf("insert account: %s already exists", a.ID)
	}
	cp := *a
	t.accounts[a.ID] = &cp
	return nil
}

func (t *memTx) working(id uuid.UUID) (*domain.Account, error) {
	if _, ok := t.held[id]; !ok {
		return nil, fmt.Errorf("account %s is not locked in this transaction", id)
	}
	a, ok := t.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound(id.String())
	}
	return a, nil
}

func (t *memTx) UpdateBalances(_ context.Context, id uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error) {
	if err := t.s.check("UpdateBalances"); err != nil {
		return nil, err
	}
	a, err := t.working(id)
	if err != nil {
		return nil, err
	}
	a.Balances = a.Balances.Apply(delta)
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (t *memTx) SetBanned(_ context.Context, id uuid.UUID, banned bool) (*domain.Account, error) {
	if err := t.s.check("SetBanned"); err != nil {
		return nil, err
	}
	a, err := t.working(id)
	if err != nil {
		return nil, err
	}
	a.Banned = banned
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (t *memTx) CountRounds(_ context.Context, accountID uuid.UUID) (int64, error) {
	t.s.mu.RLock()
	n := t.s.counts[accountID]
	t.s.mu.RUnlock()
	for _, r := range t.rounds {
		if r.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertRound(_ context.Context, r *domain.RoundRecord) error {
	if err := t.s.check("InsertRound"); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid round record: %w", err)
	}
	t.rounds = append(t.rounds, *r)
	return nil
}

func (t *memTx) LockJackpot(ctx context.Context) (*domain.JackpotPool, error) {
	if !t.jackpotHeld {
		if err := acquire(ctx, t.s.jackpotLock); err != nil {
			return nil, fmt.Errorf("lock jackpot: %w", err)
		}
		t.jackpotHeld = true
	}
	if t.jackpot == nil {
		p, _ := t.s.GetJackpot(ctx)
		t.jackpot = p
	}
	cp := *t.jackpot
	return &cp, nil
}

func (t *memTx) SaveJackpot(_ context.Context, p *domain.JackpotPool) error {
	if err := t.s.check("SaveJackpot"); err != nil {
		return err
	}
	if !t.jackpotHeld {
		return errors.New("jackpot is not locked in this transaction")
	}
	cp := *p
	t.jackpot = &cp
	return nil
}

func (t *memTx) InsertEntry(_ context.Context, params domain.PostEntryParams, after domain.Balances) (*domain.LedgerEntry, error) {
	if err := t.s.check("InsertEntry"); err != nil {
		return nil, err
	}
	e := domain.LedgerEntry{
		ID:                 uuid.New(),
		AccountID:          params.AccountID,
		Type:               params.Type,
		BalanceDelta:       params.Update.Balance,
		RewardDelta:        params.Update.RewardBalance,
		BalanceAfter:       after.Balance,
		RewardBalanceAfter: after.RewardBalance,
		RoundID:            params.RoundID,
		Metadata:           ensureJSON(params.Metadata),
		CreatedAt:          time.Now(),
	}
	t.entries = append(t.entries, e)
	return &e, nil
}

func (t *memTx) InsertOutbox(_ context.Context, draft domain.OutboxDraft) error {
	if err := t.s.check("InsertOutbox"); err != nil {
		return err
	}
	t.outbox = append(t.outbox, draft)
	return nil
}

func (t *memTx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range t.accounts {
		s.accounts[id] = *a
	}
	for _, r := range t.rounds {
		s.rounds = append(s.rounds, r)
		s.counts[r.AccountID]++
	}
	s.entries = append(s.entries, t.entries...)
	if t.jackpot != nil {
		s.jackpot = *t.jackpot
	}
	for _, d := range t.outbox {
		s.seq++
		s.outbox = append(s.outbox, domain.OutboxRecord{Seq: s.seq, OutboxDraft: d})
	}
	s.trimOutbox()
}

func (t *memTx) release() {
	if t.jackpotHeld {
		<-t.s.jackpotLock
		t.jackpotHeld = false
	}
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}
