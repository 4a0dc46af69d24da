// Package service manages user profiles and the KYC verification mirror.
package service

import (
	"context"
	"log/slog"

	"incorp/internal/audit"
	"incorp/internal/ledger"
	"incorp/internal/user/models"
	"incorp/pkg/domain"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// Store persists the profile mirror.
type Store interface {
	CreateOrGet(ctx context.Context, id domain.UserID) (*models.Profile, error)
	Find(ctx context.Context, id domain.UserID) (*models.Profile, error)
	SetVerified(ctx context.Context, id domain.UserID) (bool, error)
	ListUnverified(ctx context.Context) ([]domain.UserID, error)
}

// AuditPublisher records money-movement events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages profiles.
type Service struct {
	profiles       Store
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

// New constructs a user service.
func New(profiles Store, chain ledger.Ledger, opts ...Option) *Service {
	s := &Service{profiles: profiles, chain: chain, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the caller's profile, creating one on first sight. A down
// mirror is healed opportunistically from the chain so a user verified
// elsewhere is not asked to verify again.
func (s *Service) Profile(ctx context.Context) (*models.Profile, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.profiles.CreateOrGet(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if profile.KYCVerified {
		return profile, nil
	}

	verified, err := s.chain.IsVerified(ctx, caller)
	if err != nil {
		// Mirror read-through is best effort; the stale mirror is still a
		// valid answer.
		s.logger.WarnContext(ctx, "chain verification read failed",
			"user_id", caller,
			"error", err,
		)
		return profile, nil
	}
	if verified {
		if _, err := s.profiles.SetVerified(ctx, caller); err != nil {
			s.logger.ErrorContext(ctx, "verification mirror write failed",
				"user_id", caller,
				"error", err,
			)
		} else {
			profile.KYCVerified = true
		}
	}
	return profile, nil
}

// Verify records a KYC pass on chain and mirrors it locally. Idempotent.
func (s *Service) Verify(ctx context.Context) (*models.Profile, error) {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	profile, err := s.profiles.CreateOrGet(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if profile.KYCVerified {
		return profile, nil
	}

	tx, err := s.chain.VerifyUser(ctx, ledger.SignerForUser(caller), caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmitFailed, "verification did not confirm on chain")
	}

	flipped, err := s.profiles.SetVerified(ctx, caller)
	if err != nil {
		// The chain flag is set; the mirror sweep heals this row.
		s.logger.ErrorContext(ctx, "verification mirror write failed after chain confirmation",
			"user_id", caller,
			"reference", tx.Reference,
			"error", err,
		)
	}
	if flipped && s.auditPublisher != nil {
		if err := s.auditPublisher.Emit(ctx, audit.Event{
			ActorID:   caller.String(),
			Subject:   caller.String(),
			Action:    audit.ActionUserVerified,
			Reference: tx.Reference,
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed",
				"action", audit.ActionUserVerified,
				"error", err,
			)
		}
	}
	profile.KYCVerified = true
	return profile, nil
}
