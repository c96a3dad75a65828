package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/handler"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/service"
)

// AccountAdminHandler handles admin account management.
type AccountAdminHandler struct {
	wallet *service.WalletService
	logger *slog.Logger
}

// NewAccountAdminHandler creates a new AccountAdminHandler.
func NewAccountAdminHandler(wallet *service.WalletService, logger *slog.Logger) *AccountAdminHandler {
	return &AccountAdminHandler{wallet: wallet, logger: logger}
}

type accountResponse struct {
	ID            uuid.UUID `json:"id"`
	Balance       string    `json:"balance"`
	RewardBalance string    `json:"reward_balance"`
	Banned        bool      `json:"banned"`
}

func newAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Balance:       domain.FormatPrimary(a.Balance),
		RewardBalance: domain.FormatReward(a.RewardBalance),
		Banned:        a.Banned,
	}
}

// OpenAccount handles POST /admin/accounts. An optional {"id": "<uuid>"} binds
// the account to an identity issued elsewhere.
func (h *AccountAdminHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ID *uuid.UUID `json:"id"`
	}
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(w, r, &input); err != nil {
			handler.RespondError(w, err)
			return
		}
	}
	var id uuid.UUID
	if input.ID != nil {
		id = *input.ID
	}

	account, err := h.wallet.OpenAccount(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	h.audit(r, "open_account", account.ID)
	handler.RespondJSON(w, http.StatusCreated, newAccountResponse(account))
}

// SetBanned handles PATCH /admin/accounts/{id}/ban with {"banned": true}.
func (h *AccountAdminHandler) SetBanned(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrInvalidRequest("account id must be a UUID"))
		return
	}
	var input struct {
		Banned *bool `json:"banned"`
	}
	if err := handler.DecodeJSON(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	if input.Banned == nil {
		handler.RespondError(w, domain.ErrInvalidRequest("banned is required"))
		return
	}

	account, err := h.wallet.SetBanned(r.Context(), id, *input.Banned)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	h.audit(r, "set_banned", id)
	handler.RespondJSON(w, http.StatusOK, newAccountResponse(account))
}

// Deposit handles POST /admin/accounts/{id}/deposits with
// {"amount": "25.00", "reference": "..."}.
func (h *AccountAdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, domain.ErrInvalidRequest("account id must be a UUID"))
		return
	}
	var input struct {
		Amount    string `json:"amount"`
		Reference string `json:"reference"`
	}
	if err := handler.DecodeJSON(w, r, &input); err != nil {
		handler.RespondError(w, err)
		return
	}
	amount, err := domain.ParsePrimary(input.Amount)
	if err != nil {
		handler.RespondError(w, domain.ErrInvalidRequest("amount: "+err.Error()))
		return
	}

	res, err := h.wallet.Deposit(r.Context(), ledger.DepositParams{
		AccountID: id,
		Amount:    amount,
		Reference: input.Reference,
	})
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	h.audit(r, "deposit", id)
	handler.RespondJSON(w, http.StatusCreated, handler.NewCommandResponse(res))
}

func (h *AccountAdminHandler) audit(r *http.Request, action string, accountID uuid.UUID) {
	operator, _ := handler.SubjectID(r)
	h.logger.Info("admin action",
		"action", action,
		"account_id", accountID,
		"operator_id", operator,
		"request_id", handler.GetRequestID(r.Context()),
	)
}
