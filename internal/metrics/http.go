package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"route", "method"},
	)
)

// RecordHTTP records one served request. route is the matched route pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTP(route, method string, status int, started time.Time) {
	if route == "" {
		route = "unmatched"
	}
	httpReqDuration.WithLabelValues(route, method).Observe(float64(time.Since(started).Milliseconds()))
	httpReqTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
