// Package service runs the stream accrual engine. Claims follow the
// dual-ledger discipline: the chain pays out first, then the claimed
// counter advances, then the payout lands in the payment ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"incorp/internal/audit"
	companymodels "incorp/internal/company/models"
	"incorp/internal/ledger"
	paymentmodels "incorp/internal/payment/models"
	"incorp/internal/stream/metrics"
	"incorp/internal/stream/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// Store persists streams and their claimed counters.
type Store interface {
	Create(ctx context.Context, stream *models.Stream) error
	FindByID(ctx context.Context, id domain.StreamID) (*models.Stream, error)
	ListByPayee(ctx context.Context, userID domain.UserID) ([]*models.Stream, error)
	ListByCompany(ctx context.Context, companyID domain.CompanyID) ([]*models.Stream, error)
	AddClaimed(ctx context.Context, id domain.StreamID, expected, delta int64) error
}

// Companies resolves handles against the local company index.
type Companies interface {
	FindByHandle(ctx context.Context, handle domain.Handle) (*companymodels.Company, error)
	FindByID(ctx context.Context, id domain.CompanyID) (*companymodels.Company, error)
}

// PaymentRecorder appends stream payouts to the payment ledger.
type PaymentRecorder interface {
	RecordClaim(ctx context.Context, handle domain.Handle, payee domain.UserID, amount int64, reference string) (*paymentmodels.Payment, error)
}

// AuditPublisher records money-movement events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs stream creation and claiming.
type Service struct {
	streams        Store
	companies      Companies
	payments       PaymentRecorder
	chain          ledger.Ledger
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	// claimMu serializes claims per stream within this process. The CAS in
	// the store is the cross-process backstop.
	claimMu sync.Mutex
	claims  map[domain.StreamID]*sync.Mutex
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

// New constructs a stream service.
func New(streams Store, companies Companies, payments PaymentRecorder, chain ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		streams:   streams,
		companies: companies,
		payments:  payments,
		chain:     chain,
		logger:    slog.Default(),
		claims:    make(map[domain.StreamID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateStream opens a stream from the company treasury to the payee. The
// rate is units per day; accrual starts immediately.
func (s *Service) CreateStream(ctx context.Context, handle domain.Handle, payee domain.UserID, rate int64) (*models.Stream, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	company, err := s.companies.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	if email := requestcontext.Email(ctx); email != company.Email {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the company owner can open streams")
	}

	stream, err := models.New(company.ID, payee, rate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	tx, err := s.chain.CreateStream(ctx, ledger.SignerForUser(caller), stream.ID, handle, payee, rate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "stream registration did not confirm")
	}

	if err := s.streams.Create(ctx, stream); err != nil {
		s.logger.ErrorContext(ctx, "stream index write failed after chain confirmation",
			"stream_id", stream.ID,
			"reference", tx.Reference,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record stream")
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   stream.ID.String(),
		Action:    audit.ActionStreamCreated,
		Amount:    rate,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	return stream, nil
}

// ClaimResult reports one claim.
type ClaimResult struct {
	// Amount paid out by this claim; zero when nothing had accrued.
	Amount int64 `json:"amount"`
	// Reference is the chain transaction hash, empty for zero claims.
	Reference string `json:"reference,omitempty"`
	// TotalClaimed is the stream's lifetime payout after this claim.
	TotalClaimed int64 `json:"total_claimed"`
}

// Claim pays out everything the stream has accrued since the last claim.
// Only the payee can claim. A zero-value claim is a successful no-op that
// never touches the chain.
func (s *Service) Claim(ctx context.Context, id domain.StreamID) (ClaimResult, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return ClaimResult{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	unlock := s.lockStream(id)
	defer unlock()

	stream, err := s.streams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ClaimResult{}, dErrors.New(dErrors.CodeNotFound, "stream not found")
		}
		return ClaimResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stream")
	}
	if stream.UserID != caller {
		return ClaimResult{}, dErrors.New(dErrors.CodeUnauthorized, "only the payee can claim this stream")
	}

	claimable := stream.ClaimableAt(requestcontext.Now(ctx))
	if claimable == 0 {
		s.metrics.IncrementClaim("empty")
		return ClaimResult{TotalClaimed: stream.TotalClaimed}, nil
	}

	tx, err := s.chain.ClaimStream(ctx, ledger.SignerForUser(caller), id, claimable)
	if err != nil {
		s.metrics.IncrementClaim("submit_failed")
		return ClaimResult{}, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "claim did not confirm on chain")
	}

	if err := s.streams.AddClaimed(ctx, id, stream.TotalClaimed, claimable); err != nil {
		// The chain paid out. A conflict here means another writer advanced
		// the counter between our read and the chain call, which the
		// per-stream lock prevents in-process; surface it rather than guess.
		s.metrics.IncrementClaim("conflict")
		s.logger.ErrorContext(ctx, "claimed counter write failed after chain payout",
			"stream_id", id,
			"amount", claimable,
			"reference", tx.Reference,
			"error", err,
		)
		return ClaimResult{}, dErrors.Wrap(err, dErrors.CodeConflict, "claim bookkeeping failed after chain payout")
	}

	company, err := s.companies.FindByID(ctx, stream.CompanyID)
	if err != nil {
		s.logger.ErrorContext(ctx, "claim payout ledger row skipped",
			"stream_id", id,
			"reference", tx.Reference,
			"error", err,
		)
	} else if _, err := s.payments.RecordClaim(ctx, company.Handle, caller, claimable, tx.Reference); err != nil {
		s.logger.ErrorContext(ctx, "claim payout ledger row skipped",
			"stream_id", id,
			"reference", tx.Reference,
			"error", err,
		)
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   id.String(),
		Action:    audit.ActionStreamClaimed,
		Amount:    claimable,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	s.metrics.IncrementClaim("paid")
	s.metrics.AddClaimedUnits(claimable)
	return ClaimResult{
		Amount:       claimable,
		Reference:    tx.Reference,
		TotalClaimed: stream.TotalClaimed + claimable,
	}, nil
}

// Status describes a stream with its live accrual numbers.
type Status struct {
	Stream    *models.Stream `json:"stream"`
	Accrued   int64          `json:"accrued"`
	Claimable int64          `json:"claimable"`
}

// GetStream returns a stream with accrual computed at the request time.
func (s *Service) GetStream(ctx context.Context, id domain.StreamID) (Status, error) {
	stream, err := s.streams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Status{}, dErrors.New(dErrors.CodeNotFound, "stream not found")
		}
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stream")
	}
	now := requestcontext.Now(ctx)
	return Status{
		Stream:    stream,
		Accrued:   stream.AccruedAt(now),
		Claimable: stream.ClaimableAt(now),
	}, nil
}

// ListForCaller returns the authenticated payee's streams with accruals.
func (s *Service) ListForCaller(ctx context.Context) ([]Status, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	streams, err := s.streams.ListByPayee(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list streams")
	}
	return s.withAccruals(ctx, streams), nil
}

// ListForCompany returns a company's outgoing streams with accruals.
func (s *Service) ListForCompany(ctx context.Context, handle domain.Handle) ([]Status, error) {
	company, err := s.companies.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	streams, err := s.streams.ListByCompany(ctx, company.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list streams")
	}
	return s.withAccruals(ctx, streams), nil
}

func (s *Service) withAccruals(ctx context.Context, streams []*models.Stream) []Status {
	now := requestcontext.Now(ctx)
	out := make([]Status, len(streams))
	for i, stream := range streams {
		out[i] = Status{
			Stream:    stream,
			Accrued:   stream.AccruedAt(now),
			Claimable: stream.ClaimableAt(now),
		}
	}
	return out
}

func (s *Service) lockStream(id domain.StreamID) func() {
	s.claimMu.Lock()
	mu, ok := s.claims[id]
	if !ok {
		mu = &sync.Mutex{}
		s.claims[id] = mu
	}
	s.claimMu.Unlock()
	mu.Lock()
	return mu.Unlock
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
