// Package domain holds typed identifiers and domain primitives shared across
// bounded contexts. Typed IDs make cross-entity assignment a compile error.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "incorp/pkg/domain-errors"
)

// CompanyID identifies a company row.
type CompanyID uuid.UUID

// UserID identifies a platform user. It mirrors the opaque subject identifier
// issued by the authentication provider.
type UserID uuid.UUID

// StreamID identifies a payment stream.
type StreamID uuid.UUID

// PaymentID identifies one ledger row.
type PaymentID uuid.UUID

func (id CompanyID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id StreamID) String() string  { return uuid.UUID(id).String() }
func (id PaymentID) String() string { return uuid.UUID(id).String() }

func (id CompanyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id StreamID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's text marshaling, so each ID
// implements it explicitly. Without these, JSON encodes IDs as byte arrays.

func (id CompanyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id StreamID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CompanyID) UnmarshalText(text []byte) error {
	parsed, err := ParseCompanyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *StreamID) UnmarshalText(text []byte) error {
	parsed, err := ParseStreamID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PaymentID) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewCompanyID returns a fresh random company ID.
func NewCompanyID() CompanyID { return CompanyID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewStreamID returns a fresh random stream ID.
func NewStreamID() StreamID { return StreamID(uuid.New()) }

// NewPaymentID returns a fresh random payment ID.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

// ParsePaymentID validates and converts a string into a PaymentID.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PaymentID{}, err
	}
	return PaymentID(u), nil
}

// ParseCompanyID validates and converts a string into a CompanyID.
func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CompanyID{}, err
	}
	return CompanyID(u), nil
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseStreamID validates and converts a string into a StreamID.
func ParseStreamID(s string) (StreamID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return StreamID{}, err
	}
	return StreamID(u), nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// Handle is a company's unique, immutable slug.
type Handle string

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,31}$`)

// ParseHandle validates a company handle: lowercase slug, 3-32 characters.
func ParseHandle(s string) (Handle, error) {
	if !handlePattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "handle must be a lowercase slug of 3-32 characters")
	}
	return Handle(s), nil
}

func (h Handle) String() string { return string(h) }
func (h Handle) IsNil() bool    { return h == "" }
