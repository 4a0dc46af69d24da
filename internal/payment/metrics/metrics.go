package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment module.
type Metrics struct {
	// Transfers by outcome
	Transfers *prometheus.CounterVec

	// Ledger rows recovered by the chain backfill
	Backfilled prometheus.Counter
}

// New creates a Metrics instance with all payment metrics registered.
func New() *Metrics {
	return &Metrics{
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "incorp_payment_transfers_total",
			Help: "Total transfer attempts by outcome",
		}, []string{"outcome"}), // outcome: "confirmed", "rejected", "submit_failed"

		Backfilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_payment_backfilled_total",
			Help: "Ledger rows recovered from chain transfer logs",
		}),
	}
}

// IncrementTransfer records one transfer outcome.
func (m *Metrics) IncrementTransfer(outcome string) {
	if m != nil {
		m.Transfers.WithLabelValues(outcome).Inc()
	}
}

// AddBackfilled records rows recovered by a backfill pass.
func (m *Metrics) AddBackfilled(n int) {
	if m != nil {
		m.Backfilled.Add(float64(n))
	}
}
