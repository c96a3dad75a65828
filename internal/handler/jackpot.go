package handler

import (
	"net/http"

	"github.com/meowbet/core/internal/service"
)

// JackpotHandler serves the public pool snapshot.
type JackpotHandler struct {
	queries *service.QueryService
}

// NewJackpotHandler creates a new JackpotHandler.
func NewJackpotHandler(queries *service.QueryService) *JackpotHandler {
	return &JackpotHandler{queries: queries}
}

// Get handles GET /jackpot.
func (h *JackpotHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.queries.Jackpot(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}
