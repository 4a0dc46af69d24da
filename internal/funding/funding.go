// Package funding drives a shareholder's payment against their share
// allocation through the dual-ledger state machine:
//
//	Unfunded -> Submitting -> ChainConfirmed -> Reconciled
//
// The funded flag in the cap table flips only after the chain confirms the
// mint. A crash between confirmation and the local write leaves the row in
// ChainConfirmed; the reconciliation sweep completes the flip later.
package funding

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// State names a funding attempt's position in the state machine.
type State string

const (
	// StateUnfunded is the initial state: allocation exists, no payment.
	StateUnfunded State = "unfunded"
	// StateSubmitting means the chain transaction is in flight.
	StateSubmitting State = "submitting"
	// StateChainConfirmed means the chain holds the funds but the local
	// funded flag has not flipped yet.
	StateChainConfirmed State = "chain_confirmed"
	// StateReconciled means chain and local index agree.
	StateReconciled State = "reconciled"
)

// Result reports the outcome of a funding call.
type Result struct {
	State State `json:"state"`
	// Reference is the chain transaction hash, empty for no-op repeats.
	Reference string `json:"reference,omitempty"`
	// Flipped is true when this call performed the funded transition.
	Flipped bool `json:"flipped"`
}

// IdempotencyKey derives the dedupe key for one funding attempt. Two
// requests for the same allocation and amount always collide, whatever
// node or retry produced them.
func IdempotencyKey(companyID, email string, amount int64) string {
	sum := sha3.Sum256([]byte(fmt.Sprintf("funding:%s:%s:%d", companyID, email, amount)))
	return hex.EncodeToString(sum[:])
}
