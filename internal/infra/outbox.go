package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/guard"
	"github.com/meowbet/core/internal/metrics"
)

// OutboxSource is the relay side of the event outbox.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error)
	MarkPublished(ctx context.Context, seqs []int64) error
}

// OutboxPoller polls the event outbox and publishes events to the broker.
// Each topic has its own circuit so one failing topic does not stall the rest.
type OutboxPoller struct {
	source    OutboxSource
	producer  Publisher
	breaker   *guard.CircuitBreaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(source OutboxSource, producer Publisher, breaker *guard.CircuitBreaker, interval time.Duration, logger *slog.Logger) *OutboxPoller {
	if breaker == nil {
		breaker = guard.NewCircuitBreaker(5, 30*time.Second)
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &OutboxPoller{
		source:    source,
		producer:  producer,
		breaker:   breaker,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// Start runs the poller in a goroutine.
func (p *OutboxPoller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// relayMessage is the broker envelope for an outbox event.
type relayMessage struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Headers       json.RawMessage `json:"headers,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// PollOnce relays one batch and returns how many events were published.
// Once an event for a partition key is held back, later events with that key
// wait for the next poll so consumers see each key in order.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.source.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	held := make(map[string]bool)
	published := make([]int64, 0, len(events))
	perTopic := make(map[string]int)

	for _, e := range events {
		if held[e.PartitionKey] {
			continue
		}
		topic := e.Topic()

		if res := p.breaker.Check(ctx, topic); !res.Allowed {
			held[e.PartitionKey] = true
			metrics.RecordOutboxFailure(topic, "circuit_open")
			continue
		}

		msg, err := json.Marshal(relayMessage{
			EventID:       e.EventID.String(),
			AggregateType: string(e.AggregateType),
			AggregateID:   e.AggregateID,
			EventType:     string(e.EventType),
			Headers:       e.Headers,
			Payload:       e.Payload,
			OccurredAt:    e.OccurredAt,
		})
		if err != nil {
			held[e.PartitionKey] = true
			metrics.RecordOutboxFailure(topic, "encode")
			p.logger.Error("outbox event not encodable", "event_id", e.EventID, "topic", topic, "error", err)
			continue
		}

		if err := p.producer.Publish(ctx, topic, []byte(e.PartitionKey), msg); err != nil {
			p.breaker.RecordFailure(topic)
			held[e.PartitionKey] = true
			metrics.RecordOutboxFailure(topic, "publish")
			p.logger.Error("kafka publish failed", "event_id", e.EventID, "topic", topic, "error", err)
			continue
		}
		p.breaker.RecordSuccess(topic)
		published = append(published, e.Seq)
		perTopic[topic]++
	}

	if len(published) == 0 {
		return 0, nil
	}
	if err := p.source.MarkPublished(ctx, published); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}
	for topic, n := range perTopic {
		metrics.RecordOutboxPublished(topic, n)
	}

	p.logger.Debug("outbox poll complete", "published", len(published))
	return len(published), nil
}
