package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/ledger"
	"github.com/meowbet/core/internal/service"
)

// WalletHandler handles wallet balance and ledger endpoints for the caller.
type WalletHandler struct {
	wallet  *service.WalletService
	queries *service.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet *service.WalletService, queries *service.QueryService) *WalletHandler {
	return &WalletHandler{wallet: wallet, queries: queries}
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), accountID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, balance)
}

// entryListResponse wraps a page of ledger entries with cursor.
type entryListResponse struct {
	Entries    []domain.EntryView `json:"entries"`
	NextCursor *uuid.UUID         `json:"next_cursor,omitempty"`
}

// GetEntries handles GET /wallet/entries with cursor-based pagination.
func (h *WalletHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.queries.Entries(r.Context(), accountID, page.Cursor, page.Limit+1)
	if err != nil {
		RespondError(w, err)
		return
	}

	resp := entryListResponse{Entries: make([]domain.EntryView, 0, len(entries))}
	if len(entries) > page.Limit {
		entries = entries[:page.Limit]
		next := entries[page.Limit-1].ID
		resp.NextCursor = &next
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, entries[i].View())
	}
	RespondJSON(w, http.StatusOK, resp)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// CommandResponse is the wire shape of a ledger command's outcome.
type CommandResponse struct {
	Entry         domain.EntryView `json:"entry"`
	Balance       string           `json:"balance"`
	RewardBalance string           `json:"reward_balance"`
}

// NewCommandResponse renders a ledger command result.
func NewCommandResponse(res *domain.CommandResult) CommandResponse {
	return CommandResponse{
		Entry:         res.Entry.View(),
		Balance:       domain.FormatPrimary(res.Account.Balance),
		RewardBalance: domain.FormatReward(res.Account.RewardBalance),
	}
}

// Withdraw handles POST /wallet/withdraw with {"amount":"12.34"}.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input amountRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}
	amount, err := domain.ParsePrimary(input.Amount)
	if err != nil {
		RespondError(w, domain.ErrInvalidRequest("amount: "+err.Error()))
		return
	}

	res, err := h.wallet.Withdraw(r.Context(), ledger.WithdrawParams{AccountID: accountID, Amount: amount})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewCommandResponse(res))
}

// Convert handles POST /wallet/convert with {"amount":"0.05000000"} in reward units.
func (h *WalletHandler) Convert(w http.ResponseWriter, r *http.Request) {
	accountID, err := SubjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input amountRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, err)
		return
	}
	amount, err := domain.ParseReward(input.Amount)
	if err != nil {
		RespondError(w, domain.ErrInvalidRequest("amount: "+err.Error()))
		return
	}

	res, err := h.wallet.ConvertReward(r.Context(), ledger.ConvertRewardParams{AccountID: accountID, Amount: amount})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, NewCommandResponse(res))
}
