package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCompleted      = "completed"
	outcomeFailed         = "failed"
	outcomeTimeout        = "timeout"
	outcomeTransportError = "transport_error"
	outcomeCancelled      = "cancelled"
)

var (
	// activePollers tracks the number of export runs currently being polled
	activePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestling_export_pollers_active",
		Help: "The number of export runs currently being polled",
	})

	// pollsTotal tracks the total number of status requests sent to the report service
	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestling_export_status_polls_total",
		Help: "Total number of status requests sent to the report service",
	})

	// exportOutcomes tracks finished export runs by outcome
	exportOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestling_export_outcomes_total",
			Help: "Finished export runs by outcome",
		},
		[]string{"outcome"},
	)

	// exportDuration tracks how long export runs take from start to terminal state
	exportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nestling_export_duration_seconds",
		Help:    "Duration of export runs from start to terminal state in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func observeOutcome(outcome string, elapsed time.Duration) {
	exportOutcomes.WithLabelValues(outcome).Inc()
	exportDuration.Observe(elapsed.Seconds())
}
