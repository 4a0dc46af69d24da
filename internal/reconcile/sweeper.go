// Package reconcile heals the off-chain index from authoritative chain state.
//
// The dual-write paths (funding, payments, verification) submit to the chain
// first and mirror locally second, so a crash between the two steps leaves
// the chain ahead of the index. The sweep walks the rows that could be stale
// and re-reads the chain for each one. It only ever moves the index toward
// the chain; it never submits transactions.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"incorp/internal/audit"
	"incorp/internal/company/models"
	"incorp/internal/ledger"
	"incorp/internal/reconcile/metrics"
	"incorp/pkg/domain"
)

// DefaultLookback bounds how far back the payment backfill scans the chain
// transfer log on each pass.
const DefaultLookback = 24 * time.Hour

// sweepActor identifies the sweep in audit trails.
const sweepActor = "reconciler"

// CapTable is the slice of the company store the sweep needs.
type CapTable interface {
	List(ctx context.Context) ([]*models.Company, error)
	FindByID(ctx context.Context, id domain.CompanyID) (*models.Company, error)
	ListUnfunded(ctx context.Context) ([]*models.Shareholder, error)
	MarkFunded(ctx context.Context, id domain.CompanyID, email string) (bool, error)
}

// Payments recovers missing off-chain payment rows from the chain log.
type Payments interface {
	Backfill(ctx context.Context, handle domain.Handle, since time.Time) (int, error)
}

// Profiles is the slice of the user store the sweep needs.
type Profiles interface {
	ListUnverified(ctx context.Context) ([]domain.UserID, error)
	SetVerified(ctx context.Context, id domain.UserID) (bool, error)
}

// AuditPublisher records sweep outcomes that change money state.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Report summarizes one sweep pass.
type Report struct {
	FundingHealed       int
	DriftDetected       int
	PaymentsBackfilled  int
	VerificationsHealed int
	Errors              int
}

// Sweeper runs the periodic reconciliation pass.
type Sweeper struct {
	companies CapTable
	payments  Payments
	profiles  Profiles
	chain     ledger.Ledger

	lookback       time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(s *Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Sweeper) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithLookback overrides the payment backfill window.
func WithLookback(d time.Duration) Option {
	return func(s *Sweeper) {
		s.lookback = d
	}
}

// WithClock overrides the sweep's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

// New constructs a sweeper.
func New(companies CapTable, payments Payments, profiles Profiles, chain ledger.Ledger, opts ...Option) *Sweeper {
	s := &Sweeper{
		companies: companies,
		payments:  payments,
		profiles:  profiles,
		chain:     chain,
		lookback:  DefaultLookback,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps every interval until the context is cancelled. Sweep errors are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
				continue
			}
			if report.FundingHealed+report.PaymentsBackfilled+report.VerificationsHealed > 0 {
				s.logger.InfoContext(ctx, "reconciliation sweep healed state",
					"funding_healed", report.FundingHealed,
					"payments_backfilled", report.PaymentsBackfilled,
					"verifications_healed", report.VerificationsHealed,
				)
			}
		}
	}
}

// RunOnce performs one full pass: funding flags, payment backfill, then the
// verification mirror. Per-row failures are counted and logged but do not
// stop the pass; the next tick retries them.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	started := s.now()
	var report Report

	s.sweepFunding(ctx, &report)
	s.sweepPayments(ctx, &report)
	s.sweepVerifications(ctx, &report)

	outcome := "clean"
	if report.Errors > 0 {
		outcome = "partial"
	}
	s.metrics.ObserveSweep(outcome, s.now().Sub(started))
	return report, ctx.Err()
}

// sweepFunding re-reads the chain's share balance for every allocation the
// index still shows unfunded. A balance equal to the allocation means the
// chain transaction confirmed but the local flip was lost; a smaller nonzero
// balance is drift the sweep will not repair on its own.
func (s *Sweeper) sweepFunding(ctx context.Context, report *Report) {
	unfunded, err := s.companies.ListUnfunded(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing unfunded allocations failed", "error", err)
		report.Errors++
		return
	}

	for _, holder := range unfunded {
		company, err := s.companies.FindByID(ctx, holder.CompanyID)
		if err != nil {
			s.logger.ErrorContext(ctx, "company lookup failed during sweep",
				"company_id", holder.CompanyID,
				"error", err,
			)
			report.Errors++
			continue
		}

		balance, err := s.chain.ShareBalance(ctx, company.Handle, holder.Email)
		if err != nil {
			s.logger.WarnContext(ctx, "chain balance read failed during sweep",
				"handle", company.Handle,
				"participant", holder.Email,
				"error", err,
			)
			report.Errors++
			continue
		}

		switch {
		case balance == 0:
			// Genuinely unfunded, nothing to heal.
		case balance == holder.Shares:
			flipped, err := s.companies.MarkFunded(ctx, holder.CompanyID, holder.Email)
			if err != nil {
				s.logger.ErrorContext(ctx, "funding heal failed",
					"handle", company.Handle,
					"participant", holder.Email,
					"error", err,
				)
				report.Errors++
				continue
			}
			if !flipped {
				continue
			}
			report.FundingHealed++
			s.metrics.IncrementFundingHealed()
			s.logger.InfoContext(ctx, "healed funded flag from chain",
				"handle", company.Handle,
				"participant", holder.Email,
				"amount", holder.Shares,
			)
			s.emit(ctx, audit.Event{
				ActorID: sweepActor,
				Subject: company.Handle.String(),
				Action:  audit.ActionFundingReconciled,
				Amount:  holder.Shares,
			})
		default:
			// Neither zero nor the full allocation. The chain never accepts a
			// partial funding, so this is operator territory.
			report.DriftDetected++
			s.metrics.IncrementDrift()
			s.logger.ErrorContext(ctx, "funding drift detected",
				"handle", company.Handle,
				"participant", holder.Email,
				"chain_balance", balance,
				"allocated", holder.Shares,
			)
			s.emit(ctx, audit.Event{
				ActorID: sweepActor,
				Subject: company.Handle.String(),
				Action:  audit.ActionDriftDetected,
				Amount:  balance,
			})
		}
	}
}

// sweepPayments replays the recent chain transfer log for every company and
// inserts the rows the index is missing.
func (s *Sweeper) sweepPayments(ctx context.Context, report *Report) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing companies failed during sweep", "error", err)
		report.Errors++
		return
	}

	since := s.now().Add(-s.lookback)
	for _, company := range companies {
		inserted, err := s.payments.Backfill(ctx, company.Handle, since)
		if err != nil {
			s.logger.WarnContext(ctx, "payment backfill failed during sweep",
				"handle", company.Handle,
				"error", err,
			)
			report.Errors++
			continue
		}
		if inserted > 0 {
			report.PaymentsBackfilled += inserted
			s.metrics.AddBackfilled(inserted)
		}
	}
}

// sweepVerifications flips mirrors for users the chain already verified.
func (s *Sweeper) sweepVerifications(ctx context.Context, report *Report) {
	unverified, err := s.profiles.ListUnverified(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing unverified profiles failed", "error", err)
		report.Errors++
		return
	}

	for _, id := range unverified {
		verified, err := s.chain.IsVerified(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "chain verification read failed during sweep",
				"user_id", id,
				"error", err,
			)
			report.Errors++
			continue
		}
		if !verified {
			continue
		}
		flipped, err := s.profiles.SetVerified(ctx, id)
		if err != nil {
			s.logger.ErrorContext(ctx, "verification heal failed", "user_id", id, "error", err)
			report.Errors++
			continue
		}
		if flipped {
			report.VerificationsHealed++
			s.metrics.IncrementVerificationHealed()
			s.logger.InfoContext(ctx, "healed verification mirror from chain", "user_id", id)
		}
	}
}

func (s *Sweeper) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
