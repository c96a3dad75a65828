package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
)

// QueryService serves the read side: round history, ledger entries and the
// public jackpot snapshot.
type QueryService struct {
	store       repository.Reader
	projections projection.Store
	logger      *slog.Logger
}

// NewQueryService creates a QueryService. projections may be nil.
func NewQueryService(store repository.Reader, projections projection.Store, logger *slog.Logger) *QueryService {
	return &QueryService{store: store, projections: projections, logger: logger}
}

// Round returns one round. When owner is non-nil the round must belong to it.
func (s *QueryService) Round(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*domain.RoundRecord, error) {
	r, err := s.store.FindRound(ctx, id)
	if err != nil {
		return nil, toAppError(s.logger, "find round", err)
	}
	if r == nil || (owner != nil && r.AccountID != *owner) {
		return nil, domain.ErrNotFound("round", id.String())
	}
	return r, nil
}

// Rounds lists rounds newest first.
func (s *QueryService) Rounds(ctx context.Context, f repository.RoundFilter) ([]domain.RoundRecord, error) {
	if f.Game != "" && !f.Game.Valid() {
		return nil, domain.ErrInvalidRequest("unknown game type " + string(f.Game))
	}
	rounds, err := s.store.ListRounds(ctx, f)
	if err != nil {
		return nil, toAppError(s.logger, "list rounds", err)
	}
	return rounds, nil
}

// Entries lists an account's ledger entries newest first.
func (s *QueryService) Entries(ctx context.Context, accountID uuid.UUID, cursor *uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	entries, err := s.store.ListEntries(ctx, accountID, cursor, limit)
	if err != nil {
		return nil, toAppError(s.logger, "list entries", err)
	}
	return entries, nil
}

// Jackpot returns the public pool snapshot, cached for projection.JackpotTTL.
func (s *QueryService) Jackpot(ctx context.Context) (*domain.JackpotView, error) {
	if s.projections != nil {
		if v, err := projection.GetJackpot(ctx, s.projections); err == nil {
			return v, nil
		}
	}
	pool, err := s.store.GetJackpot(ctx)
	if err != nil {
		return nil, toAppError(s.logger, "get jackpot", err)
	}
	if s.projections != nil {
		if err := projection.PutJackpot(ctx, s.projections, pool); err != nil {
			s.logger.Warn("jackpot projection update failed", "error", err)
		}
	}
	v := pool.View()
	return &v, nil
}

// Ping checks the backing store.
func (s *QueryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
