package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates the ledger entry kinds.
type EntryType string

const (
	EntryAccountOpened    EntryType = "account_opened"
	EntryRoundSettlement  EntryType = "round_settlement"
	EntryDeposit          EntryType = "deposit"
	EntryWithdrawal       EntryType = "withdrawal"
	EntryRewardConversion EntryType = "reward_conversion"
)

// LedgerEntry represents a ledger_entries row (append-only, with the
// post-update balance snapshot).
type LedgerEntry struct {
	ID                 uuid.UUID       `json:"id"`
	AccountID          uuid.UUID       `json:"account_id"`
	Type               EntryType       `json:"type"`
	BalanceDelta       int64           `json:"balance_delta"`
	RewardDelta        int64           `json:"reward_delta"`
	BalanceAfter       int64           `json:"balance_after"`
	RewardBalanceAfter int64           `json:"reward_balance_after"`
	RoundID            *uuid.UUID      `json:"round_id,omitempty"`
	Metadata           json.RawMessage `json:"metadata"`
	CreatedAt          time.Time       `json:"created_at"`
}

// PostEntryParams is the input to the atomic PostLedgerEntry operation.
type PostEntryParams struct {
	AccountID uuid.UUID
	Type      EntryType
	Update    BalanceUpdate
	RoundID   *uuid.UUID
	Metadata  json.RawMessage
}

// EntryView is the wire shape of a ledger entry.
type EntryView struct {
	ID                 uuid.UUID       `json:"id"`
	Type               EntryType       `json:"type"`
	BalanceDelta       string          `json:"balance_delta"`
	RewardDelta        string          `json:"reward_delta"`
	BalanceAfter       string          `json:"balance_after"`
	RewardBalanceAfter string          `json:"reward_balance_after"`
	RoundID            *uuid.UUID      `json:"round_id,omitempty"`
	Metadata           json.RawMessage `json:"metadata"`
	CreatedAt          time.Time       `json:"created_at"`
}

// View renders e with decimal-string money fields.
func (e *LedgerEntry) View() EntryView {
	return EntryView{
		ID:                 e.ID,
		Type:               e.Type,
		BalanceDelta:       FormatPrimary(e.BalanceDelta),
		RewardDelta:        FormatReward(e.RewardDelta),
		BalanceAfter:       FormatPrimary(e.BalanceAfter),
		RewardBalanceAfter: FormatReward(e.RewardBalanceAfter),
		RoundID:            e.RoundID,
		Metadata:           e.Metadata,
		CreatedAt:          e.CreatedAt,
	}
}

// CommandResult is what a ledger command returns: the appended entry, the
// account after the update and the events written alongside.
type CommandResult struct {
	Entry   *LedgerEntry
	Account *Account
	Events  []OutboxDraft
}
