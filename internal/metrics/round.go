package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_total",
			Help: "Total place-bet requests by game and outcome",
		},
		[]string{"game", "outcome"},
	)

	roundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "round_duration_ms",
			Help:    "Place-bet duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"game", "outcome"},
	)

	roundRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_rejected_total",
			Help: "Rejected rounds by error code",
		},
		[]string{"code"},
	)

	jackpotAwards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jackpot_awards_total",
			Help: "Jackpot payouts",
		},
	)
)

// Round outcomes.
const (
	OutcomeWin      = "win"
	OutcomeLoss     = "loss"
	OutcomeRejected = "rejected"
)

// RecordRound records one place-bet call. outcome is OutcomeWin, OutcomeLoss
// or OutcomeRejected.
func RecordRound(game, outcome string, started time.Time) {
	if game == "" {
		game = "unknown"
	}
	roundTotal.WithLabelValues(game, outcome).Inc()
	roundDuration.WithLabelValues(game, outcome).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordRejection counts a rejected round by its error code.
func RecordRejection(code string) {
	roundRejected.WithLabelValues(code).Inc()
}

// RecordJackpotAward counts a jackpot payout.
func RecordJackpotAward() {
	jackpotAwards.Inc()
}
