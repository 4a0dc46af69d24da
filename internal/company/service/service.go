// Package service orchestrates company incorporation and share issuance.
// Mutations follow the dual-ledger discipline: submit to chain, wait for
// confirmation, then write the local index.
package service

import (
	"context"
	"errors"
	"log/slog"

	"incorp/internal/allocation"
	"incorp/internal/audit"
	"incorp/internal/company/models"
	"incorp/internal/ledger"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// Store is the off-chain company index.
type Store interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, id domain.CompanyID) (*models.Company, error)
	FindByHandle(ctx context.Context, handle domain.Handle) (*models.Company, error)
	List(ctx context.Context) ([]*models.Company, error)
	IssueCapTable(ctx context.Context, id domain.CompanyID, totalShares int64, holders []*models.Shareholder) error
	Shareholders(ctx context.Context, id domain.CompanyID) ([]*models.Shareholder, error)
}

// AuditPublisher records money-movement events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates company lifecycle management.
type Service struct {
	companies      Store
	chain          ledger.Ledger
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

// New constructs a Service.
func New(companies Store, chain ledger.Ledger, opts ...Option) *Service {
	s := &Service{companies: companies, chain: chain, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCompanyInput carries the incorporation request.
type CreateCompanyInput struct {
	Handle      string
	Name        string
	Description string
	Email       string
	Director    string
}

// CreateCompany registers the company on chain and then mirrors it into the
// local index. The chain write comes first: a company that exists locally
// but not on chain could accept payments against nothing.
func (s *Service) CreateCompany(ctx context.Context, input CreateCompanyInput) (*models.Company, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	handle, err := domain.ParseHandle(input.Handle)
	if err != nil {
		return nil, err
	}
	company, err := models.NewCompany(handle, input.Name, input.Description, input.Email, input.Director, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if _, err := s.companies.FindByHandle(ctx, handle); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "company handle is already taken")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check handle availability")
	}

	tx, err := s.chain.CreateCompany(ctx, ledger.SignerForUser(caller), company.RegistryRecord())
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "company handle is already registered on chain")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "company registration did not confirm")
	}

	if err := s.companies.Create(ctx, company); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "company handle is already taken")
		}
		// The chain registration confirmed. The local index is behind until
		// an operator replays this row; surface loudly.
		s.logger.ErrorContext(ctx, "local index write failed after chain confirmation",
			"handle", handle,
			"reference", tx.Reference,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record company")
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   handle.String(),
		Action:    audit.ActionCompanyCreated,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	return company, nil
}

// SplitInput is one requested cap table entry.
type SplitInput struct {
	Email   string
	Percent float64
}

// IssueShares fixes the cap table exactly once. The percentage splits are
// converted to integer share counts that sum to totalShares before anything
// touches the chain; an inexpressible split never leaves the process.
func (s *Service) IssueShares(ctx context.Context, handle domain.Handle, totalShares int64, splits []SplitInput) ([]*models.Shareholder, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	company, err := s.getByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if email := requestcontext.Email(ctx); email != company.Email {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the company owner can issue shares")
	}
	if company.Issued() {
		return nil, dErrors.New(dErrors.CodeInvalidAllocation, "shares have already been issued")
	}

	in := make([]allocation.Split, len(splits))
	for i, sp := range splits {
		in[i] = allocation.Split{ParticipantID: sp.Email, Percent: sp.Percent}
	}
	allocs, err := allocation.Compute(totalShares, in)
	if err != nil {
		return nil, err
	}

	tx, err := s.chain.IssueShares(ctx, ledger.SignerForUser(caller), handle, totalShares)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvalidAllocation, "shares have already been issued on chain")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "share issuance did not confirm")
	}

	holders := make([]*models.Shareholder, len(allocs))
	for i, a := range allocs {
		holders[i] = &models.Shareholder{
			CompanyID: company.ID,
			Email:     a.ParticipantID,
			Shares:    a.Shares,
		}
	}
	if err := s.companies.IssueCapTable(ctx, company.ID, totalShares, holders); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "cap table was issued concurrently")
		}
		s.logger.ErrorContext(ctx, "cap table write failed after chain confirmation",
			"handle", handle,
			"reference", tx.Reference,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record cap table")
	}

	s.emit(ctx, audit.Event{
		ActorID:   caller.String(),
		Subject:   handle.String(),
		Action:    audit.ActionSharesIssued,
		Amount:    totalShares,
		Reference: tx.Reference,
		RequestID: requestcontext.RequestID(ctx),
	})
	return holders, nil
}

// GetCompany retrieves a company by handle.
func (s *Service) GetCompany(ctx context.Context, handle domain.Handle) (*models.Company, error) {
	return s.getByHandle(ctx, handle)
}

// ListCompanies returns all companies, newest first.
func (s *Service) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list companies")
	}
	return companies, nil
}

// CapTable returns the company's shareholder rows, funded flags included.
func (s *Service) CapTable(ctx context.Context, handle domain.Handle) ([]*models.Shareholder, error) {
	company, err := s.getByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	holders, err := s.companies.Shareholders(ctx, company.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shareholders")
	}
	return holders, nil
}

func (s *Service) getByHandle(ctx context.Context, handle domain.Handle) (*models.Company, error) {
	if handle.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company handle is required")
	}
	company, err := s.companies.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.healFromChain(ctx, handle)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	return company, nil
}

// healFromChain recovers a local row for a company the chain knows but the
// index lost, typically from a crash between chain confirmation and the
// local write.
func (s *Service) healFromChain(ctx context.Context, handle domain.Handle) (*models.Company, error) {
	rec, err := s.chain.GetCompany(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "company not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "chain company read failed")
	}

	company, err := models.NewCompany(handle, rec.Name, "", rec.Email, rec.Director, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "chain record is unrepresentable")
	}
	company.TotalShares = rec.TotalShares
	if err := s.companies.Create(ctx, company); err != nil && !errors.Is(err, sentinel.ErrAlreadyExists) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to heal company index")
	}
	s.logger.WarnContext(ctx, "healed company index from chain",
		"handle", handle,
	)
	return company, nil
}

// emit records an audit event. Chain state is already final here, so a sink
// failure is logged rather than unwinding the request.
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
