package repository

import (
	"context"
	"fmt"

	"github.com/meowbet/core/internal/domain"
)

type outboxRepo struct{}

// Insert writes an outbox event using the camelCase column names.
func (r outboxRepo) Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error {
	_, err := db.Exec(ctx, `
		INSERT INTO event_outbox
		  ("eventId", "aggregateType", "aggregateId", "eventType", "partitionKey", "headers", "payload", "occurredAt")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		draft.EventID,
		string(draft.AggregateType),
		draft.AggregateID,
		string(draft.EventType),
		draft.PartitionKey,
		ensureJSON(draft.Headers),
		ensureJSON(draft.Payload),
		draft.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r outboxRepo) FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT "id", "eventId", "aggregateType", "aggregateId", "eventType",
		       "partitionKey", "headers", "payload", "occurredAt"
		FROM event_outbox
		ORDER BY "id" ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxRecord
	for rows.Next() {
		var rec domain.OutboxRecord
		var aggType, evtType string
		err := rows.Scan(&rec.Seq, &rec.EventID, &aggType, &rec.AggregateID,
			&evtType, &rec.PartitionKey, &rec.Headers, &rec.Payload, &rec.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rec.AggregateType = domain.AggregateType(aggType)
		rec.EventType = domain.EventType(evtType)
		events = append(events, rec)
	}
	return events, rows.Err()
}

func (r outboxRepo) MarkPublished(ctx context.Context, db DBTX, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `DELETE FROM event_outbox WHERE "id" = ANY($1)`, seqs)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
