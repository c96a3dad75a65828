package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/handler"
	"github.com/meowbet/core/internal/repository"
	"github.com/meowbet/core/internal/service"
)

// RoundAdminHandler lists rounds across accounts.
type RoundAdminHandler struct {
	queries *service.QueryService
}

// NewRoundAdminHandler creates a new RoundAdminHandler.
func NewRoundAdminHandler(queries *service.QueryService) *RoundAdminHandler {
	return &RoundAdminHandler{queries: queries}
}

// ListRounds handles GET /admin/rounds?account_id=&game=&cursor=&limit=.
func (h *RoundAdminHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	page, err := handler.ParsePage(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	f := repository.RoundFilter{
		Game:   domain.GameType(r.URL.Query().Get("game")),
		Cursor: page.Cursor,
		Limit:  page.Limit + 1,
	}
	if s := r.URL.Query().Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			handler.RespondError(w, domain.ErrInvalidRequest("account_id must be a UUID"))
			return
		}
		f.AccountID = &id
	}

	rounds, err := h.queries.Rounds(r.Context(), f)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, handler.NewRoundList(rounds, page.Limit))
}
