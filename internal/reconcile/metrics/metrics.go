package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation sweep.
type Metrics struct {
	// Funding rows healed by the sweep
	FundingHealed prometheus.Counter

	// Partially funded allocations detected
	DriftDetected prometheus.Counter

	// Payment rows backfilled from the chain transfer log
	PaymentsBackfilled prometheus.Counter

	// Verification mirrors healed from the chain
	VerificationsHealed prometheus.Counter

	// Sweep passes by outcome
	Sweeps *prometheus.CounterVec

	// Wall time of a full sweep pass
	SweepDuration prometheus.Histogram
}

// New creates a Metrics instance with all reconciliation metrics registered.
func New() *Metrics {
	return &Metrics{
		FundingHealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_reconcile_funding_healed_total",
			Help: "Funded flags flipped by the reconciliation sweep",
		}),
		DriftDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_reconcile_drift_detected_total",
			Help: "Allocations whose on-chain funding does not match the cap table",
		}),
		PaymentsBackfilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_reconcile_payments_backfilled_total",
			Help: "Payment rows recovered from the chain transfer log",
		}),
		VerificationsHealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "incorp_reconcile_verifications_healed_total",
			Help: "KYC mirrors flipped by the reconciliation sweep",
		}),
		Sweeps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "incorp_reconcile_sweeps_total",
			Help: "Completed sweep passes by outcome",
		}, []string{"outcome"}), // outcome: "clean", "partial"

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "incorp_reconcile_sweep_duration_seconds",
			Help:    "Wall time of one full reconciliation pass",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementFundingHealed records one healed funding row.
func (m *Metrics) IncrementFundingHealed() {
	if m != nil {
		m.FundingHealed.Inc()
	}
}

// IncrementDrift records one drift detection.
func (m *Metrics) IncrementDrift() {
	if m != nil {
		m.DriftDetected.Inc()
	}
}

// AddBackfilled records payment rows recovered in one pass.
func (m *Metrics) AddBackfilled(n int) {
	if m != nil && n > 0 {
		m.PaymentsBackfilled.Add(float64(n))
	}
}

// IncrementVerificationHealed records one healed KYC mirror.
func (m *Metrics) IncrementVerificationHealed() {
	if m != nil {
		m.VerificationsHealed.Inc()
	}
}

// ObserveSweep records a finished pass and its duration.
func (m *Metrics) ObserveSweep(outcome string, d time.Duration) {
	if m != nil {
		m.Sweeps.WithLabelValues(outcome).Inc()
		m.SweepDuration.Observe(d.Seconds())
	}
}
