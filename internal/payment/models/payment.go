// Package models holds the append-only payment ledger rows.
package models

import (
	"time"

	"incorp/pkg/domain"

	dErrors "incorp/pkg/domain-errors"
)

// Type classifies how a payment was initiated.
type Type string

const (
	// TypeWire is a direct treasury-to-treasury transfer.
	TypeWire Type = "wire"
	// TypeStream is a claim against an accruing payment stream.
	TypeStream Type = "stream"
)

// Payment is one completed transfer. Rows are append-only: a payment exists
// because the chain confirmed it, so it is never updated or deleted.
// Corrections are modeled as new reversing rows.
type Payment struct {
	ID          domain.PaymentID `json:"id"`
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Amount      int64            `json:"amount"`
	Type        Type             `json:"type"`
	Description string           `json:"description"`
	// Reference is the chain transaction hash. The store enforces uniqueness
	// on non-empty references so backfill cannot duplicate a row.
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// New validates and constructs a payment row.
func New(origin, destination string, amount int64, paymentType Type, description, reference string, now time.Time) (*Payment, error) {
	if origin == "" || destination == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment origin and destination are required")
	}
	if origin == destination {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment origin and destination must differ")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment amount must be positive")
	}
	if paymentType != TypeWire && paymentType != TypeStream {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown payment type")
	}
	return &Payment{
		ID:          domain.NewPaymentID(),
		Origin:      origin,
		Destination: destination,
		Amount:      amount,
		Type:        paymentType,
		Description: description,
		Reference:   reference,
		CreatedAt:   now,
	}, nil
}
