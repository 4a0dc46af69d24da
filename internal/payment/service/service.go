// Package service orchestrates transfers and balance reads over the dual
// ledger. The chain is authoritative for balances; the relational ledger is
// the queryable audit trail, healed from chain logs when rows go missing.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"incorp/internal/audit"
	companymodels "incorp/internal/company/models"
	"incorp/internal/ledger"
	"incorp/internal/payment/metrics"
	"incorp/internal/payment/models"
	usermodels "incorp/internal/user/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// Store is the append-only payment ledger.
type Store interface {
	Append(ctx context.Context, payment *models.Payment) error
	ListByParty(ctx context.Context, party string) ([]*models.Payment, error)
	HasReference(ctx context.Context, reference string) (bool, error)
}

// Companies resolves handles against the local company index.
type Companies interface {
	FindByHandle(ctx context.Context, handle domain.Handle) (*companymodels.Company, error)
}

// AuditPublisher records money-movement events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Profiles is the KYC mirror slice the transfer gate reads before falling
// back to a chain query.
type Profiles interface {
	Find(ctx context.Context, id domain.UserID) (*usermodels.Profile, error)
	SetVerified(ctx context.Context, id domain.UserID) (bool, error)
}

// Service orchestrates the payment ledger.
type Service struct {
	payments       Store
	companies      Companies
	chain          ledger.Ledger
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

// New constructs a payment service.
func New(payments Store, companies Companies, chain ledger.Ledger, opts ...Option) *Service {
	s := &Service{payments: payments, companies: companies, chain: chain, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance reads a company's balance from the chain. The local ledger is
// never consulted: summing payment rows would happily report a number the
// chain disagrees with.
func (s *Service) GetBalance(ctx context.Context, handle domain.Handle) (int64, error) {
	if _, err := s.resolve(ctx, handle); err != nil {
		return 0, err
	}
	balance, err := s.chain.GetBalance(ctx, handle)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "chain balance read failed")
	}
	return balance, nil
}

// ListPayments returns the company's ledger rows, newest first.
func (s *Service) ListPayments(ctx context.Context, handle domain.Handle) ([]*models.Payment, error) {
	if _, err := s.resolve(ctx, handle); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByParty(ctx, handle.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

// TransferInput describes a treasury-to-treasury transfer.
type TransferInput struct {
	From        domain.Handle
	To          domain.Handle
	Amount      int64
	Description string
}

// Transfer moves tokens between company treasuries: chain first, ledger row
// second. A failed submit leaves no row; a crash after confirmation is
// healed by the backfill, keyed on the transaction reference.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*models.Payment, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	from, err := s.resolve(ctx, input.From)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolve(ctx, input.To); err != nil {
		return nil, err
	}
	if email := requestcontext.Email(ctx); email != from.Email {
		s.metrics.IncrementTransfer("rejected")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the company owner can transfer from its treasury")
	}

	payment, err := models.New(input.From.String(), input.To.String(), input.Amount,
		models.TypeWire, input.Description, "", requestcontext.Now(ctx))
	if err != nil {
		s.metrics.IncrementTransfer("rejected")
		return nil, err
	}

	verified, err := s.callerVerified(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity check unavailable")
	}
	if !verified {
		s.metrics.IncrementTransfer("rejected")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity verification required before transfers")
	}

	tx, err := s.chain.Transfer(ctx, ledger.SignerForUser(caller), input.From, input.To, input.Amount)
	if err != nil {
		s.metrics.IncrementTransfer("submit_failed")
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "transfer did not confirm on chain")
	}
	payment.Reference = tx.Reference

	if err := s.payments.Append(ctx, payment); err != nil && !errors.Is(err, sentinel.ErrAlreadyExists) {
		// The chain moved the funds. The backfill recovers this row from the
		// transfer log by its reference.
		s.logger.ErrorContext(ctx, "ledger row write failed after chain confirmation",
			"from", input.From,
			"to", input.To,
			"reference", tx.Reference,
			"error", err,
		)
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   input.From.String(),
		Action:    audit.ActionTransferRecorded,
		Amount:    input.Amount,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	s.metrics.IncrementTransfer("confirmed")
	return payment, nil
}

// RecordClaim appends a stream payout row. Called by the stream engine after
// its chain claim confirms.
func (s *Service) RecordClaim(ctx context.Context, handle domain.Handle, payee domain.UserID, amount int64, reference string) (*models.Payment, error) {
	payment, err := models.New(handle.String(), payee.String(), amount,
		models.TypeStream, "stream claim", reference, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.payments.Append(ctx, payment); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return payment, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record stream payout")
	}
	return payment, nil
}

// Backfill recovers ledger rows for transfers the chain confirmed but the
// relational ledger never saw. Returns how many rows were inserted.
func (s *Service) Backfill(ctx context.Context, handle domain.Handle, since time.Time) (int, error) {
	if _, err := s.resolve(ctx, handle); err != nil {
		return 0, err
	}
	transfers, err := s.chain.RecentTransfers(ctx, handle, since)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "chain transfer log read failed")
	}

	inserted := 0
	for _, tr := range transfers {
		known, err := s.payments.HasReference(ctx, tr.Reference)
		if err != nil {
			return inserted, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check payment reference")
		}
		if known {
			continue
		}
		payment, err := models.New(tr.From.String(), tr.To.String(), tr.Amount,
			models.TypeWire, "recovered from chain transfer log", tr.Reference, tr.OccurredAt)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unrepresentable chain transfer",
				"reference", tr.Reference,
				"error", err,
			)
			continue
		}
		if err := s.payments.Append(ctx, payment); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				continue
			}
			return inserted, dErrors.Wrap(err, dErrors.CodeInternal, "failed to backfill payment")
		}
		inserted++
		s.emit(ctx, audit.Event{
			Subject:   handle.String(),
			Action:    audit.ActionPaymentBackfilled,
			Amount:    tr.Amount,
			Reference: tr.Reference,
		})
	}
	s.metrics.AddBackfilled(inserted)
	return inserted, nil
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

func (s *Service) resolve(ctx context.Context, handle domain.Handle) (*companymodels.Company, error) {
	if handle.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company handle is required")
	}
	company, err := s.companies.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	return company, nil
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
