package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Outbox events relayed to the broker by topic",
		},
		[]string{"topic"},
	)

	outboxFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_failures_total",
			Help: "Failed or skipped relay attempts by topic and reason",
		},
		[]string{"topic", "reason"},
	)
)

// RecordOutboxPublished counts n events relayed on topic.
func RecordOutboxPublished(topic string, n int) {
	outboxPublished.WithLabelValues(topic).Add(float64(n))
}

// RecordOutboxFailure counts a relay failure. reason is "publish" or "circuit_open".
func RecordOutboxFailure(topic, reason string) {
	outboxFailures.WithLabelValues(topic, reason).Inc()
}
