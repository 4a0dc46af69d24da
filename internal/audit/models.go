// Package audit captures the money-movement trail. Every confirmed chain
// mutation emits one event; sinks fan out to the relational store and to
// Kafka for downstream compliance consumers.
package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	OccurredAt time.Time `json:"occurred_at"`
	// ActorID is the authenticated caller, empty for background sweeps.
	ActorID string `json:"actor_id"`
	// Subject names what was acted on: a company handle, a stream ID, a
	// shareholder email.
	Subject   string `json:"subject"`
	Action    Action `json:"action"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	RequestID string `json:"request_id"`
}

// Action identifies the kind of event.
type Action string

const (
	ActionCompanyCreated    Action = "company_created"
	ActionSharesIssued      Action = "shares_issued"
	ActionFundingConfirmed  Action = "funding_confirmed"
	ActionFundingReconciled Action = "funding_reconciled"
	ActionDriftDetected     Action = "drift_detected"
	ActionStreamCreated     Action = "stream_created"
	ActionStreamClaimed     Action = "stream_claimed"
	ActionTransferRecorded  Action = "transfer_recorded"
	ActionPaymentBackfilled Action = "payment_backfilled"
	ActionUserVerified      Action = "user_verified"
)
