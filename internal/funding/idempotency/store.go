// Package idempotency reserves funding attempts so retries and concurrent
// submissions collapse into a single chain transaction.
package idempotency

import (
	"context"
	"time"
)

// Reservation lifetimes. In-flight reservations expire so a crashed node
// cannot wedge an allocation forever; completion markers outlive any
// plausible client retry window.
const (
	InFlightTTL  = 2 * time.Minute
	CompletedTTL = 24 * time.Hour
)

// Store tracks funding attempt reservations by derived key.
//
// Begin acquires a reservation. It fails with sentinel.ErrConflict while
// another attempt holds the key and sentinel.ErrAlreadyExists once an
// attempt has completed.
type Store interface {
	Begin(ctx context.Context, key string) error
	// Complete marks the attempt as done. The marker survives for
	// CompletedTTL so repeats short-circuit without touching the chain.
	Complete(ctx context.Context, key string) error
	// Fail releases the reservation so the caller may retry.
	Fail(ctx context.Context, key string) error
}
