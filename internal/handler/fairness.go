package handler

import (
	"net/http"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/fairness"
	"github.com/meowbet/core/internal/settlement"
)

// FairnessHandler lets anyone check a disclosed round.
type FairnessHandler struct {
	orchestrator *settlement.Orchestrator
	seeds        fairness.SeedSource
}

// NewFairnessHandler creates a new FairnessHandler.
func NewFairnessHandler(orchestrator *settlement.Orchestrator, seeds fairness.SeedSource) *FairnessHandler {
	if seeds == nil {
		seeds = fairness.CryptoSource{}
	}
	return &FairnessHandler{orchestrator: orchestrator, seeds: seeds}
}

type verifyResponse struct {
	Valid          bool   `json:"valid"`
	ServerSeedHash string `json:"server_seed_hash"`
}

// Verify handles POST /fairness/verify. Malformed rounds are reported as not
// valid rather than as errors.
func (h *FairnessHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var input settlement.VerifyRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, verifyResponse{
		Valid:          h.orchestrator.VerifyRound(input),
		ServerSeedHash: fairness.HashServerSeed(input.ServerSeed),
	})
}

// ClientSeed handles GET /fairness/seed: a fresh client seed plus the games
// and wheel tables a bet may name.
func (h *FairnessHandler) ClientSeed(w http.ResponseWriter, r *http.Request) {
	seed, err := h.seeds.ClientSeed()
	if err != nil {
		RespondError(w, domain.ErrInternal("generate client seed", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"client_seed":  seed,
		"games":        domain.GameTypes,
		"wheel_tables": h.orchestrator.Rules().WheelTableNames(),
	})
}
