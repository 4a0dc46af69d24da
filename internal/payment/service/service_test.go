package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	companymodels "incorp/internal/company/models"
	companystore "incorp/internal/company/store"
	"incorp/internal/ledger"
	"incorp/internal/ledger/mocks"
	"incorp/internal/payment/store"
	userstore "incorp/internal/user/store"
	"incorp/pkg/domain"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

type fixture struct {
	chain     *mocks.MockLedger
	companies *companystore.Memory
	payments  *store.Memory
	service   *Service
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockLedger(ctrl)
	companies := companystore.NewMemory()
	payments := store.NewMemory()

	for _, h := range []string{"acme", "globex"} {
		c, err := companymodels.NewCompany(domain.Handle(h), "Co "+h, "", "owner@"+h+".test", "Director", time.Now())
		require.NoError(t, err)
		require.NoError(t, companies.Create(context.Background(), c))
	}

	userID, err := domain.ParseUserID("7b8a6d4e-4a6f-4bde-9f34-1f2a5c0d9e11")
	require.NoError(t, err)
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithEmail(ctx, "owner@acme.test")

	return &fixture{
		chain:     chain,
		companies: companies,
		payments:  payments,
		service:   New(payments, companies, chain),
		ctx:       ctx,
	}
}

func TestTransfer(t *testing.T) {
	t.Run("confirms on chain then appends a ledger row", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().IsVerified(gomock.Any(), gomock.Any()).Return(true, nil)
		f.chain.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), domain.Handle("acme"), domain.Handle("globex"), int64(25)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xabc"}, nil)

		payment, err := f.service.Transfer(f.ctx, TransferInput{
			From: "acme", To: "globex", Amount: 25, Description: "invoice 7",
		})
		require.NoError(t, err)
		assert.Equal(t, "0xabc", payment.Reference)

		rows, err := f.payments.ListByParty(context.Background(), "acme")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(25), rows[0].Amount)
	})

	t.Run("failed submit leaves no phantom row", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().IsVerified(gomock.Any(), gomock.Any()).Return(true, nil)
		f.chain.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), domain.Handle("acme"), domain.Handle("globex"), int64(25)).
			Return(ledger.TxResult{}, errors.New("insufficient balance"))

		_, err := f.service.Transfer(f.ctx, TransferInput{From: "acme", To: "globex", Amount: 25})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerSubmitFailed))

		rows, err := f.payments.ListByParty(context.Background(), "acme")
		require.NoError(t, err)
		assert.Empty(t, rows, "a failed transfer must never appear in the ledger")
	})

	t.Run("a verified profile mirror answers without a chain read", func(t *testing.T) {
		f := newFixture(t)
		profiles := userstore.NewMemory()
		_, err := profiles.SetVerified(context.Background(), requestcontext.UserID(f.ctx))
		require.NoError(t, err)

		// No IsVerified expectation: the mirror must short-circuit.
		f.chain.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), domain.Handle("acme"), domain.Handle("globex"), int64(25)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xabc"}, nil)

		svc := New(f.payments, f.companies, f.chain, WithProfiles(profiles))
		_, err = svc.Transfer(f.ctx, TransferInput{From: "acme", To: "globex", Amount: 25})
		require.NoError(t, err)
	})

	t.Run("a chain-verified caller heals a missing mirror row", func(t *testing.T) {
		f := newFixture(t)
		profiles := userstore.NewMemory()
		f.chain.EXPECT().IsVerified(gomock.Any(), gomock.Any()).Return(true, nil)
		f.chain.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), domain.Handle("acme"), domain.Handle("globex"), int64(25)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xabc"}, nil)

		svc := New(f.payments, f.companies, f.chain, WithProfiles(profiles))
		_, err := svc.Transfer(f.ctx, TransferInput{From: "acme", To: "globex", Amount: 25})
		require.NoError(t, err)

		profile, err := profiles.Find(context.Background(), requestcontext.UserID(f.ctx))
		require.NoError(t, err)
		assert.True(t, profile.KYCVerified)
	})

	t.Run("only the treasury owner can transfer", func(t *testing.T) {
		f := newFixture(t)
		ctx := requestcontext.WithEmail(f.ctx, "owner@globex.test")

		_, err := f.service.Transfer(ctx, TransferInput{From: "acme", To: "globex", Amount: 25})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown destination is rejected before the chain", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Transfer(f.ctx, TransferInput{From: "acme", To: "ghost", Amount: 25})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t)
	f.chain.EXPECT().GetBalance(gomock.Any(), domain.Handle("acme")).Return(int64(4200), nil)

	balance, err := f.service.GetBalance(f.ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(4200), balance, "balance must come from the chain, not the ledger rows")
}

func TestBackfill(t *testing.T) {
	f := newFixture(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	known, err := f.service.RecordClaim(f.ctx, "acme",
		requestcontext.UserID(f.ctx), 10, "0xknown")
	require.NoError(t, err)
	require.NotNil(t, known)

	transfers := []ledger.TransferRecord{
		{From: "acme", To: "globex", Amount: 10, Reference: "0xknown", OccurredAt: since},
		{From: "globex", To: "acme", Amount: 55, Reference: "0xlost", OccurredAt: since.Add(time.Hour)},
	}
	f.chain.EXPECT().
		RecentTransfers(gomock.Any(), domain.Handle("acme"), since).
		Return(transfers, nil).
		Times(2)

	recovered, err := f.service.Backfill(f.ctx, "acme", since)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered, "only the missing reference should be inserted")

	// A second pass finds nothing to do.
	recovered, err = f.service.Backfill(f.ctx, "acme", since)
	require.NoError(t, err)
	assert.Zero(t, recovered)

	rows, err := f.payments.ListByParty(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRecordClaimIsReferenceIdempotent(t *testing.T) {
	f := newFixture(t)
	payee := requestcontext.UserID(f.ctx)

	_, err := f.service.RecordClaim(f.ctx, "acme", payee, 30, "0xclaim")
	require.NoError(t, err)
	_, err = f.service.RecordClaim(f.ctx, "acme", payee, 30, "0xclaim")
	require.NoError(t, err)

	rows, err := f.payments.ListByParty(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "duplicate references must not duplicate rows")
}
