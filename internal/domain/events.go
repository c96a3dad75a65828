package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventAccountOpened  EventType = "core.account.opened"
	EventAccountBanned  EventType = "core.account.banned"
	EventEntryPosted    EventType = "core.wallet.entry.posted"
	EventRoundSettled   EventType = "core.round.settled"
	EventJackpotWon     EventType = "core.jackpot.won"
	EventJackpotAccrued EventType = "core.jackpot.accrued"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateAccount AggregateType = "account"
	AggregateRound   AggregateType = "round"
	AggregateJackpot AggregateType = "jackpot"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// Topic is the broker topic an event is relayed to.
func (d OutboxDraft) Topic() string {
	return string(d.EventType)
}

func newDraft(aggregate AggregateType, aggregateID, partitionKey string, evt EventType, payload interface{}) OutboxDraft {
	data, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     evt,
		PartitionKey:  partitionKey,
		Headers:       json.RawMessage(`{}`),
		Payload:       data,
		OccurredAt:    time.Now(),
	}
}

// NewEntryPostedEvent creates the wallet event for a ledger entry.
func NewEntryPostedEvent(e *LedgerEntry) OutboxDraft {
	return newDraft(AggregateAccount, e.AccountID.String(), e.AccountID.String(), EventEntryPosted, e.View())
}

// NewRoundSettledEvent creates the round event; partitioned by account so a
// consumer sees one account's rounds in order.
func NewRoundSettledEvent(r *RoundRecord) OutboxDraft {
	return newDraft(AggregateRound, r.ID.String(), r.AccountID.String(), EventRoundSettled, r.View())
}

// NewJackpotWonEvent records a jackpot payout.
func NewJackpotWonEvent(winner uuid.UUID, amount int64, roundID uuid.UUID) OutboxDraft {
	return newDraft(AggregateJackpot, "singleton", "jackpot", EventJackpotWon, map[string]string{
		"winner_id": winner.String(),
		"amount":    FormatReward(amount),
		"round_id":  roundID.String(),
	})
}

// NewJackpotAccruedEvent records a pool increase from a losing round.
func NewJackpotAccruedEvent(amount int64, roundID uuid.UUID) OutboxDraft {
	return newDraft(AggregateJackpot, "singleton", "jackpot", EventJackpotAccrued, map[string]string{
		"amount":   FormatReward(amount),
		"round_id": roundID.String(),
	})
}

// NewAccountOpenedEvent creates an account lifecycle event.
func NewAccountOpenedEvent(a *Account) OutboxDraft {
	return newDraft(AggregateAccount, a.ID.String(), a.ID.String(), EventAccountOpened, map[string]string{
		"account_id": a.ID.String(),
		"balance":    FormatPrimary(a.Balance),
	})
}

// NewAccountBannedEvent records a ban flag change.
func NewAccountBannedEvent(id uuid.UUID, banned bool) OutboxDraft {
	return newDraft(AggregateAccount, id.String(), id.String(), EventAccountBanned, map[string]interface{}{
		"account_id": id.String(),
		"banned":     banned,
	})
}

// OutboxRecord is a stored outbox row awaiting relay.
type OutboxRecord struct {
	Seq int64
	OutboxDraft
}
