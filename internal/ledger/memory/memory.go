// Package memory implements the ledger boundary with an in-process chain
// simulator. It backs development mode and every test that needs confirmed
// transactions without a running chain node.
//
// The simulator keeps the same bookkeeping the contract does: company
// records stored as raw field elements (round-tripped through the
// contracts/registry codec so the decode boundary is exercised), minted
// share counters, token balances, a transfer log, and the KYC flag set.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"incorp/contracts/registry"
	"incorp/internal/ledger"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Op names a ledger operation for fault injection.
type Op string

const (
	OpCreateCompany Op = "create_company"
	OpIssueShares   Op = "issue_shares"
	OpFundShares    Op = "fund_shares"
	OpTransfer      Op = "transfer"
	OpCreateStream  Op = "create_stream"
	OpClaimStream   Op = "claim_stream"
	OpVerifyUser    Op = "verify_user"
)

type company struct {
	raw          []registry.Field
	authorized   int64
	issued       bool
	minted       int64
	balance      int64
	shareHolding map[string]int64 // participant -> funded share units
}

type stream struct {
	handle domain.Handle
	payee  domain.UserID
	rate   int64
}

// Ledger is the in-memory simulator. Safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	companies map[domain.Handle]*company
	streams   map[domain.StreamID]*stream
	verified  map[domain.UserID]bool
	transfers map[domain.Handle][]ledger.TransferRecord
	faults    map[Op]error
	block     uint64
	txSeq     uint64
	tracer    trace.Tracer
}

// New constructs an empty simulated chain.
func New() *Ledger {
	return &Ledger{
		companies: make(map[domain.Handle]*company),
		streams:   make(map[domain.StreamID]*stream),
		verified:  make(map[domain.UserID]bool),
		transfers: make(map[domain.Handle][]ledger.TransferRecord),
		faults:    make(map[Op]error),
		tracer:    otel.Tracer("incorp/ledger/memory"),
	}
}

var _ ledger.Ledger = (*Ledger)(nil)

// InjectFault makes the next call to op fail with err. Single shot.
func (l *Ledger) InjectFault(op Op, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[op] = err
}

// takeFault consumes a pending fault for op. Caller holds the lock.
func (l *Ledger) takeFault(op Op) error {
	if err, ok := l.faults[op]; ok {
		delete(l.faults, op)
		return err
	}
	return nil
}

// mine assigns the next block and tx reference. Caller holds the lock.
func (l *Ledger) mine() ledger.TxResult {
	l.block++
	l.txSeq++
	return ledger.TxResult{
		Confirmed:   true,
		Reference:   fmt.Sprintf("0x%016x", l.txSeq),
		BlockNumber: l.block,
	}
}

func (l *Ledger) CreateCompany(ctx context.Context, signer ledger.SigningContext, rec registry.CompanyRecord) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.CreateCompany")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	raw, err := registry.EncodeCompany(rec)
	if err != nil {
		return ledger.TxResult{}, err
	}
	handle, err := domain.ParseHandle(rec.Handle)
	if err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpCreateCompany); err != nil {
		return ledger.TxResult{}, err
	}
	if _, exists := l.companies[handle]; exists {
		return ledger.TxResult{}, fmt.Errorf("create company %s: %w", handle, sentinel.ErrAlreadyExists)
	}
	l.companies[handle] = &company{
		raw:          raw,
		authorized:   rec.TotalShares,
		shareHolding: make(map[string]int64),
	}
	return l.mine(), nil
}

func (l *Ledger) IssueShares(ctx context.Context, signer ledger.SigningContext, handle domain.Handle, totalShares int64) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.IssueShares")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpIssueShares); err != nil {
		return ledger.TxResult{}, err
	}
	c, ok := l.companies[handle]
	if !ok {
		return ledger.TxResult{}, fmt.Errorf("issue shares for %s: %w", handle, sentinel.ErrNotFound)
	}
	if c.issued {
		return ledger.TxResult{}, fmt.Errorf("issue shares for %s: already issued: %w", handle, sentinel.ErrInvalidState)
	}
	c.authorized = totalShares
	c.issued = true
	return l.mine(), nil
}

func (l *Ledger) FundShares(ctx context.Context, signer ledger.SigningContext, handle domain.Handle, participant string, amount int64) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.FundShares")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpFundShares); err != nil {
		return ledger.TxResult{}, err
	}
	c, ok := l.companies[handle]
	if !ok {
		return ledger.TxResult{}, fmt.Errorf("fund %s: %w", handle, sentinel.ErrNotFound)
	}
	if c.minted+amount > c.authorized {
		return ledger.TxResult{}, fmt.Errorf("fund %s: minting %d exceeds authorized %d: %w",
			handle, amount, c.authorized, sentinel.ErrInvalidState)
	}
	c.minted += amount
	c.balance += amount
	c.shareHolding[participant] += amount
	return l.mine(), nil
}

func (l *Ledger) Transfer(ctx context.Context, signer ledger.SigningContext, from, to domain.Handle, amount int64) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Transfer")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpTransfer); err != nil {
		return ledger.TxResult{}, err
	}
	src, ok := l.companies[from]
	if !ok {
		return ledger.TxResult{}, fmt.Errorf("transfer from %s: %w", from, sentinel.ErrNotFound)
	}
	dst, ok := l.companies[to]
	if !ok {
		return ledger.TxResult{}, fmt.Errorf("transfer to %s: %w", to, sentinel.ErrNotFound)
	}
	if src.balance < amount {
		return ledger.TxResult{}, fmt.Errorf("transfer from %s: balance %d below %d: %w",
			from, src.balance, amount, sentinel.ErrInvalidState)
	}
	src.balance -= amount
	dst.balance += amount

	tx := l.mine()
	rec := ledger.TransferRecord{
		From:       from,
		To:         to,
		Amount:     amount,
		Reference:  tx.Reference,
		OccurredAt: time.Now().UTC(),
	}
	l.transfers[from] = append(l.transfers[from], rec)
	l.transfers[to] = append(l.transfers[to], rec)
	return tx, nil
}

func (l *Ledger) CreateStream(ctx context.Context, signer ledger.SigningContext, streamID domain.StreamID, handle domain.Handle, payee domain.UserID, rate int64) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.CreateStream")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpCreateStream); err != nil {
		return ledger.TxResult{}, err
	}
	if _, ok := l.companies[handle]; !ok {
		return ledger.TxResult{}, fmt.Errorf("create stream for %s: %w", handle, sentinel.ErrNotFound)
	}
	if _, exists := l.streams[streamID]; exists {
		return ledger.TxResult{}, fmt.Errorf("create stream %s: %w", streamID, sentinel.ErrAlreadyExists)
	}
	l.streams[streamID] = &stream{handle: handle, payee: payee, rate: rate}
	return l.mine(), nil
}

func (l *Ledger) ClaimStream(ctx context.Context, signer ledger.SigningContext, streamID domain.StreamID, amount int64) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.ClaimStream")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpClaimStream); err != nil {
		return ledger.TxResult{}, err
	}
	s, ok := l.streams[streamID]
	if !ok {
		return ledger.TxResult{}, fmt.Errorf("claim stream %s: %w", streamID, sentinel.ErrNotFound)
	}
	c := l.companies[s.handle]
	if c.balance < amount {
		return ledger.TxResult{}, fmt.Errorf("claim stream %s: payer balance %d below %d: %w",
			streamID, c.balance, amount, sentinel.ErrInvalidState)
	}
	c.balance -= amount
	return l.mine(), nil
}

func (l *Ledger) VerifyUser(ctx context.Context, signer ledger.SigningContext, userID domain.UserID) (ledger.TxResult, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.VerifyUser")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return ledger.TxResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.takeFault(OpVerifyUser); err != nil {
		return ledger.TxResult{}, err
	}
	l.verified[userID] = true
	return l.mine(), nil
}

func (l *Ledger) GetCompany(ctx context.Context, handle domain.Handle) (registry.CompanyRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.companies[handle]
	if !ok {
		return registry.CompanyRecord{}, fmt.Errorf("get company %s: %w", handle, sentinel.ErrNotFound)
	}
	rec, err := registry.DecodeCompany(c.raw)
	if err != nil {
		return registry.CompanyRecord{}, err
	}
	rec.TotalShares = c.authorized
	return rec, nil
}

func (l *Ledger) GetBalance(ctx context.Context, handle domain.Handle) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.companies[handle]
	if !ok {
		return 0, fmt.Errorf("balance of %s: %w", handle, sentinel.ErrNotFound)
	}
	return c.balance, nil
}

func (l *Ledger) ShareBalance(ctx context.Context, handle domain.Handle, participant string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.companies[handle]
	if !ok {
		return 0, fmt.Errorf("share balance of %s: %w", handle, sentinel.ErrNotFound)
	}
	return c.shareHolding[participant], nil
}

func (l *Ledger) RecentTransfers(ctx context.Context, handle domain.Handle, since time.Time) ([]ledger.TransferRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledger.TransferRecord
	for i := len(l.transfers[handle]) - 1; i >= 0; i-- {
		rec := l.transfers[handle][i]
		if rec.OccurredAt.Before(since) {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *Ledger) IsVerified(ctx context.Context, userID domain.UserID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verified[userID], nil
}
