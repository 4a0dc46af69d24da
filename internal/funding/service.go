package funding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"incorp/internal/audit"
	"incorp/internal/company/models"
	"incorp/internal/funding/idempotency"
	"incorp/internal/funding/metrics"
	"incorp/internal/ledger"
	usermodels "incorp/internal/user/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// CapTable is the slice of the company store funding needs.
type CapTable interface {
	FindByHandle(ctx context.Context, handle domain.Handle) (*models.Company, error)
	FindShareholder(ctx context.Context, id domain.CompanyID, email string) (*models.Shareholder, error)
	MarkFunded(ctx context.Context, id domain.CompanyID, email string) (bool, error)
}

// AuditPublisher records money-movement events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Profiles is the KYC mirror slice the funding gate reads before falling
// back to a chain query.
type Profiles interface {
	Find(ctx context.Context, id domain.UserID) (*usermodels.Profile, error)
	SetVerified(ctx context.Context, id domain.UserID) (bool, error)
}

// Service executes funding attempts against the dual ledger.
type Service struct {
	capTable       CapTable
	chain          ledger.Ledger
	reservations   idempotency.Store
	profiles       Profiles
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProfiles lets the KYC gate answer from the local mirror without a
// chain read on the hot path.
func WithProfiles(profiles Profiles) Option {
	return func(s *Service) {
		s.profiles = profiles
	}
}

// NewService constructs a funding service.
func NewService(capTable CapTable, chain ledger.Ledger, reservations idempotency.Store, opts ...Option) *Service {
	s := &Service{
		capTable:     capTable,
		chain:        chain,
		reservations: reservations,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fund pays for the caller's share allocation in company handle. The amount
// must equal the allocation exactly; partial funding is not a concept this
// ledger supports.
//
// The call is idempotent at two levels: a funded cap table row short-circuits
// before any reservation, and the idempotency key collapses concurrent
// retries into one chain submission.
func (s *Service) Fund(ctx context.Context, handle domain.Handle, amount int64) (Result, error) {
	caller := requestcontext.UserID(ctx)
	email := requestcontext.Email(ctx)
	if caller.IsNil() || email == "" {
		return Result{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if amount <= 0 {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	company, err := s.capTable.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	if !company.Issued() {
		return Result{}, dErrors.New(dErrors.CodeConflict, "shares have not been issued yet")
	}

	holder, err := s.capTable.FindShareholder(ctx, company.ID, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "no share allocation for caller")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load share allocation")
	}
	if holder.Funded {
		s.metrics.IncrementAttempt("duplicate")
		return Result{State: StateReconciled}, nil
	}
	if amount != holder.Shares {
		s.metrics.IncrementAttempt("rejected")
		return Result{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"payment of %d does not match the share allocation of %d", amount, holder.Shares)
	}

	verified, err := s.callerVerified(ctx, caller)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity check unavailable")
	}
	if !verified {
		s.metrics.IncrementAttempt("rejected")
		return Result{}, dErrors.New(dErrors.CodeUnauthorized, "identity verification required before funding")
	}

	key := IdempotencyKey(company.ID.String(), email, amount)
	if err := s.reservations.Begin(ctx, key); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyExists):
			// A previous attempt confirmed on chain. The cap table row is
			// either flipped already or waiting on the sweep.
			s.metrics.IncrementAttempt("duplicate")
			return Result{State: StateChainConfirmed}, nil
		case errors.Is(err, sentinel.ErrConflict):
			return Result{}, dErrors.New(dErrors.CodeConflict, "funding attempt already in progress")
		default:
			// Submitting without a reservation risks a double mint. Fail
			// closed.
			return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "idempotency store unavailable")
		}
	}

	start := time.Now()
	tx, err := s.chain.FundShares(ctx, ledger.SignerForUser(caller), handle, email, amount)
	s.metrics.ObserveSubmitLatency(time.Since(start))
	if err != nil {
		if failErr := s.reservations.Fail(ctx, key); failErr != nil {
			s.logger.ErrorContext(ctx, "failed to release funding reservation",
				"key", key,
				"error", failErr,
			)
		}
		s.metrics.IncrementAttempt("submit_failed")
		return Result{}, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "funding did not confirm on chain")
	}

	if err := s.reservations.Complete(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist funding completion marker",
			"key", key,
			"error", err,
		)
	}

	flipped, err := s.capTable.MarkFunded(ctx, company.ID, email)
	if err != nil {
		// The chain holds the funds; the sweep flips the flag once the index
		// is reachable again.
		s.logger.ErrorContext(ctx, "funded flag write failed after chain confirmation",
			"handle", handle,
			"email", email,
			"reference", tx.Reference,
			"error", err,
		)
		s.metrics.IncrementAttempt("confirmed")
		return Result{State: StateChainConfirmed, Reference: tx.Reference}, nil
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   handle.String() + "/" + email,
		Action:    audit.ActionFundingConfirmed,
		Amount:    amount,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	s.metrics.IncrementAttempt("confirmed")
	return Result{State: StateReconciled, Reference: tx.Reference, Flipped: flipped}, nil
}

// Status reports the caller's funding state for one company without touching
// the chain.
func (s *Service) Status(ctx context.Context, handle domain.Handle) (Result, error) {
	email := requestcontext.Email(ctx)
	if email == "" {
		return Result{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	company, err := s.capTable.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	holder, err := s.capTable.FindShareholder(ctx, company.ID, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "no share allocation for caller")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load share allocation")
	}
	if holder.Funded {
		return Result{State: StateReconciled}, nil
	}
	return Result{State: StateUnfunded}, nil
}

// callerVerified gates on KYC. The profile mirror answers first; the chain
// covers a missing or stale mirror and heals it on a positive read.
func (s *Service) callerVerified(ctx context.Context, caller domain.UserID) (bool, error) {
	if s.profiles != nil {
		profile, err := s.profiles.Find(ctx, caller)
		switch {
		case err == nil && profile.KYCVerified:
			return true, nil
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "profile mirror read failed, falling back to chain",
				"user_id", caller,
				"error", err,
			)
		}
	}
	verified, err := s.chain.IsVerified(ctx, caller)
	if err != nil {
		return false, err
	}
	if verified && s.profiles != nil {
		if _, err := s.profiles.SetVerified(ctx, caller); err != nil {
			s.logger.WarnContext(ctx, "verification mirror heal failed",
				"user_id", caller,
				"error", err,
			)
		}
	}
	return verified, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
