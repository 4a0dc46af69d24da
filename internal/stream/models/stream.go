// Package models holds the payment stream aggregate and its accrual math.
package models

import (
	"time"

	"incorp/pkg/domain"

	dErrors "incorp/pkg/domain-errors"
)

// secondsPerDay converts the per-day rate into second-granularity accrual.
const secondsPerDay = 86400

// Stream is a rate-based payment stream from a company treasury to a payee.
//
// Invariants:
//   - Rate and StartDate are immutable after creation
//   - TotalClaimed only grows, and never beyond what has accrued
//
// Accrued value is pure arithmetic over (Rate, StartDate, now); nothing is
// persisted per tick.
type Stream struct {
	ID           domain.StreamID  `json:"id"`
	CompanyID    domain.CompanyID `json:"company_id"`
	UserID       domain.UserID    `json:"user_id"`
	Rate         int64            `json:"rate"`
	StartDate    time.Time        `json:"start_date"`
	TotalClaimed int64            `json:"total_claimed"`
}

// New validates and constructs a stream.
func New(companyID domain.CompanyID, userID domain.UserID, rate int64, start time.Time) (*Stream, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stream company is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stream payee is required")
	}
	if rate <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stream rate must be positive")
	}
	return &Stream{
		ID:        domain.NewStreamID(),
		CompanyID: companyID,
		UserID:    userID,
		Rate:      rate,
		StartDate: start,
	}, nil
}

// AccruedAt returns the total value accrued from StartDate to now, rounded
// down to whole units. Rate is per day; accrual advances every second.
func (s *Stream) AccruedAt(now time.Time) int64 {
	if !now.After(s.StartDate) {
		return 0
	}
	elapsed := int64(now.Sub(s.StartDate) / time.Second)
	return s.Rate * elapsed / secondsPerDay
}

// ClaimableAt returns the accrued value not yet claimed. Never negative.
func (s *Stream) ClaimableAt(now time.Time) int64 {
	claimable := s.AccruedAt(now) - s.TotalClaimed
	if claimable < 0 {
		return 0
	}
	return claimable
}
