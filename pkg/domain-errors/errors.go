// Package domainerrors provides coded errors for the domain layer. Services
// attach a Code so transport layers can map failures to responses without
// string matching, and so callers can branch on error class with HasCode.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeInvalidInput marks malformed or missing caller input.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests that are well-formed but not processable.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks caller identity or KYC mismatches.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound marks missing entities.
	CodeNotFound Code = "not_found"
	// CodeConflict marks concurrent-modification and uniqueness failures.
	// Callers should re-read and retry.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks an entity invariant that would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal_error"
	// CodeUnavailable marks temporarily unreachable collaborators.
	CodeUnavailable Code = "unavailable"

	// CodeInvalidAllocation marks cap-table allocations that cannot be
	// satisfied: percentages not summing to 100, participants resolving to
	// zero shares, or issuance attempted twice.
	CodeInvalidAllocation Code = "invalid_allocation"
	// CodeLedgerSubmitFailed marks on-chain submissions the ledger rejected
	// or timed out. Off-chain state is untouched; the operation is retryable.
	CodeLedgerSubmitFailed Code = "ledger_submit_failed"
	// CodeReconciliationDrift marks on-chain state the off-chain index
	// disagrees with in a way that must not be auto-healed.
	CodeReconciliationDrift Code = "reconciliation_drift"
)

// Error is a coded domain error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// has no domain code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
