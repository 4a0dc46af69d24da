package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the funding module.
type Metrics struct {
	// Funding attempts by outcome
	Attempts *prometheus.CounterVec

	// Chain submit latency for funding transactions
	SubmitLatency prometheus.Histogram
}

// New creates a Metrics instance with all funding metrics registered.
func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "incorp_funding_attempts_total",
			Help: "Total funding attempts by outcome",
		}, []string{"outcome"}), // outcome: "confirmed", "duplicate", "rejected", "submit_failed"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "incorp_funding_submit_duration_seconds",
			Help:    "Duration of chain funding submissions including confirmation wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementAttempt records one funding attempt outcome.
func (m *Metrics) IncrementAttempt(outcome string) {
	if m != nil {
		m.Attempts.WithLabelValues(outcome).Inc()
	}
}

// ObserveSubmitLatency records the chain submit duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
