package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the stream module.
type Metrics struct {
	// Claims by outcome
	Claims *prometheus.CounterVec

	// Units paid out through claims
	ClaimedUnits prometheus.Counter
}

// New creates a Metrics instance with all stream metrics registered.
func New() *Metrics {
	return &Metrics{
		Claims: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "incorp_stream_claims_total",
			Help: "Total stream claims by outcome",
		}, []string{"outcome"}), // outcome: "paid", "empty", "submit_failed", "conflict"

		ClaimedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_stream_claimed_units_total",
			Help: "Total units paid out through stream claims",
		}),
	}
}

// IncrementClaim records one claim outcome.
func (m *Metrics) IncrementClaim(outcome string) {
	if m != nil {
		m.Claims.WithLabelValues(outcome).Inc()
	}
}

// AddClaimedUnits records units paid out.
func (m *Metrics) AddClaimedUnits(n int64) {
	if m != nil {
		m.ClaimedUnits.Add(float64(n))
	}
}
