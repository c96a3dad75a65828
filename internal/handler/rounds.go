package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/guard"
	"github.com/meowbet/core/internal/repository"
	"github.com/meowbet/core/internal/service"
	"github.com/meowbet/core/internal/settlement"
)

// IdempotencyHeader carries the client's retry key for POST /rounds.
const IdempotencyHeader = "Idempotency-Key"

// RoundHandler places bets and serves the caller's round history.
type RoundHandler struct {
	orchestrator *settlement.Orchestrator
	queries      *service.QueryService
	limiter      guard.Limiter
	dedupe       guard.Deduper
	logger       *slog.Logger
}

// NewRoundHandler creates a new RoundHandler.
func NewRoundHandler(
	orchestrator *settlement.Orchestrator,
	queries *service.QueryService,
	limiter guard.Limiter,
	dedupe guard.Deduper,
	logger *slog.Logger,
) *RoundHandler {
	return &RoundHandler{
		orchestrator: orchestrator,
		queries:      queries,
		limiter:      limiter,
		dedupe:       dedupe,
		logger:       logger,
	}
}

type placeBetRequest struct {
	Game       domain.GameType `json:"game"`
	Stake      string          `json:"stake"`
	Params     json.RawMessage `json:"params"`
	ClientSeed string          `json:"client_seed,omitempty"`
}

// PlaceBet handles POST /rounds.
func (h *RoundHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if res := h.limiter.Check(r.Context(), "bet:"+accountID.String()); !res.Allowed {
		RespondError(w, domain.ErrRateLimited(res.Reason))
		return
	}

	var input placeBetRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}
	stake, err := domain.ParsePrimary(input.Stake)
	if err != nil {
		RespondError(w, domain.ErrInvalidRequest("stake: "+err.Error()))
		return
	}

	var dedupeKey string
	if key := r.Header.Get(IdempotencyHeader); key != "" {
		dedupeKey = "bet:" + accountID.String() + ":" + key
		if res := h.dedupe.Check(r.Context(), dedupeKey); !res.Allowed {
			if res.Guard == guard.StoreUnavailable {
				RespondError(w, domain.ErrPersistence(errors.New(res.Reason)))
				return
			}
			RespondError(w, domain.ErrConflict(res.Reason))
			return
		}
	}

	result, err := h.orchestrator.PlaceBet(r.Context(), settlement.PlaceBetRequest{
		AccountID:  accountID,
		Game:       input.Game,
		Stake:      stake,
		Params:     input.Params,
		ClientSeed: input.ClientSeed,
	})
	if err != nil {
		// A rejected round left nothing behind, so the same key may be retried.
		if dedupeKey != "" {
			h.dedupe.Remove(r.Context(), dedupeKey)
		}
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// RoundList is a page of rounds.
type RoundList struct {
	Rounds     []domain.RoundView `json:"rounds"`
	NextCursor *uuid.UUID         `json:"next_cursor,omitempty"`
}

// ListRounds handles GET /rounds?game=&cursor=&limit=.
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	page, err := ParsePage(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	rounds, err := h.queries.Rounds(r.Context(), repository.RoundFilter{
		AccountID: &accountID,
		Game:      domain.GameType(r.URL.Query().Get("game")),
		Cursor:    page.Cursor,
		Limit:     page.Limit + 1,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewRoundList(rounds, page.Limit))
}

// GetRound handles GET /rounds/{id}. Other accounts' rounds are not found.
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathUUID(chi.URLParam(r, "id"), "round id")
	if err != nil {
		RespondError(w, err)
		return
	}

	round, err := h.queries.Round(r.Context(), id, &accountID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, round.View())
}

// NewRoundList trims a limit+1 fetch to limit and sets the next cursor.
func NewRoundList(rounds []domain.RoundRecord, limit int) RoundList {
	resp := RoundList{Rounds: make([]domain.RoundView, 0, len(rounds))}
	if len(rounds) > limit {
		rounds = rounds[:limit]
		next := rounds[limit-1].ID
		resp.NextCursor = &next
	}
	for i := range rounds {
		resp.Rounds = append(resp.Rounds, rounds[i].View())
	}
	return resp
}
