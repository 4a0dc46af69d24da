// Package ledger defines the boundary to the authoritative on-chain
// registry/token contract. Everything above this interface treats the chain
// as an opaque ledger: mutating calls submit and block until inclusion or a
// definitive failure, read calls simulate without waiting.
//
// Idempotency is the caller's responsibility. The adapter performs no
// client-side deduplication; funding and claims derive dedupe keys before
// ever reaching it.
package ledger

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	"incorp/contracts/registry"
	"incorp/pkg/domain"
)

// TxResult reports the outcome of a submit-and-wait call.
type TxResult struct {
	// Confirmed is true once the transaction is included on chain.
	Confirmed bool
	// Reference is the transaction hash, usable for audit backfill dedupe.
	Reference string
	// BlockNumber is the inclusion block, zero when unconfirmed.
	BlockNumber uint64
}

// SigningContext identifies the account a mutating call is signed with. It
// is passed explicitly on every call so concurrent callers never share
// wallet state.
type SigningContext struct {
	Account string
}

// SignerForUser derives a deterministic signing account from a caller
// identity. The derivation is one-way; the adapter maps accounts to keys.
func SignerForUser(id domain.UserID) SigningContext {
	sum := sha3.Sum256([]byte("incorp.signer." + id.String()))
	return SigningContext{Account: "0x" + hex.EncodeToString(sum[:20])}
}

// TransferRecord is one completed on-chain transfer, as reported by the
// chain's transfer log. The reconciliation sweep uses References to backfill
// missing off-chain payment rows.
type TransferRecord struct {
	From       domain.Handle
	To         domain.Handle
	Amount     int64
	Reference  string
	OccurredAt time.Time
}

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Ledger

// Ledger is the narrow interface over the CompanyRegistry contract.
//
// Mutating calls (those taking a SigningContext) block until chain inclusion
// or a definitive failure; a context timeout means "outcome unknown" and the
// caller must re-poll or rely on the reconciliation sweep, never assume
// success.
type Ledger interface {
	// CreateCompany registers a company record on chain.
	CreateCompany(ctx context.Context, signer SigningContext, rec registry.CompanyRecord) (TxResult, error)
	// IssueShares fixes the authorized share total for a company. One-time.
	IssueShares(ctx context.Context, signer SigningContext, handle domain.Handle, totalShares int64) (TxResult, error)
	// FundShares mints amount tokens to the company against the
	// participant's share allocation.
	FundShares(ctx context.Context, signer SigningContext, handle domain.Handle, participant string, amount int64) (TxResult, error)
	// Transfer moves tokens between two company treasuries.
	Transfer(ctx context.Context, signer SigningContext, from, to domain.Handle, amount int64) (TxResult, error)
	// CreateStream registers a continuously-accruing payment stream.
	CreateStream(ctx context.Context, signer SigningContext, streamID domain.StreamID, handle domain.Handle, payee domain.UserID, rate int64) (TxResult, error)
	// ClaimStream transfers amount accrued by the stream to its payee.
	ClaimStream(ctx context.Context, signer SigningContext, streamID domain.StreamID, amount int64) (TxResult, error)
	// VerifyUser records a KYC pass for the user on chain.
	VerifyUser(ctx context.Context, signer SigningContext, userID domain.UserID) (TxResult, error)

	// GetCompany reads and decodes a company record. sentinel.ErrNotFound
	// when the handle is unregistered.
	GetCompany(ctx context.Context, handle domain.Handle) (registry.CompanyRecord, error)
	// GetBalance reads a company's authoritative token balance.
	GetBalance(ctx context.Context, handle domain.Handle) (int64, error)
	// ShareBalance reads how many share units a participant has funded.
	ShareBalance(ctx context.Context, handle domain.Handle, participant string) (int64, error)
	// RecentTransfers lists completed transfers touching the company since
	// the given time, newest first.
	RecentTransfers(ctx context.Context, handle domain.Handle, since time.Time) ([]TransferRecord, error)
	// IsVerified reads the on-chain KYC flag mirror.
	IsVerified(ctx context.Context, userID domain.UserID) (bool, error)
}
