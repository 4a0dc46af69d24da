package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"incorp/internal/audit"
	companymodels "incorp/internal/company/models"
	companystore "incorp/internal/company/store"
	"incorp/internal/ledger"
	"incorp/internal/ledger/mocks"
	paymentmodels "incorp/internal/payment/models"
	paymentservice "incorp/internal/payment/service"
	paymentstore "incorp/internal/payment/store"
	"incorp/internal/stream/store"
	"incorp/pkg/domain"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

var streamStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	chain    *mocks.MockLedger
	streams  *store.Memory
	payments *paymentstore.Memory
	sink     *audit.MemoryStore
	service  *Service
	payee    domain.UserID
	ownerCtx context.Context
	payeeCtx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockLedger(ctrl)
	companies := companystore.NewMemory()
	streams := store.NewMemory()
	payments := paymentstore.NewMemory()
	sink := audit.NewMemoryStore()

	company, err := companymodels.NewCompany("acme", "Acme Ltd", "", "founder@acme.test", "Ada", streamStart)
	require.NoError(t, err)
	require.NoError(t, companies.Create(context.Background(), company))

	owner, err := domain.ParseUserID("11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)
	payee, err := domain.ParseUserID("22222222-2222-4222-8222-222222222222")
	require.NoError(t, err)

	ownerCtx := requestcontext.WithUserID(context.Background(), owner)
	ownerCtx = requestcontext.WithEmail(ownerCtx, "founder@acme.test")
	ownerCtx = requestcontext.WithTime(ownerCtx, streamStart)

	payeeCtx := requestcontext.WithUserID(context.Background(), payee)
	payeeCtx = requestcontext.WithEmail(payeeCtx, "dev@acme.test")

	recorder := paymentservice.New(payments, companies, chain)
	svc := New(streams, companies, recorder, chain,
		WithAuditPublisher(audit.NewPublisher(sink)))

	return &fixture{
		chain:    chain,
		streams:  streams,
		payments: payments,
		sink:     sink,
		service:  svc,
		payee:    payee,
		ownerCtx: ownerCtx,
		payeeCtx: payeeCtx,
	}
}

func (f *fixture) openStream(t *testing.T, rate int64) domain.StreamID {
	t.Helper()
	f.chain.EXPECT().
		CreateStream(gomock.Any(), gomock.Any(), gomock.Any(), domain.Handle("acme"), f.payee, rate).
		Return(ledger.TxResult{Confirmed: true, Reference: "0xs1"}, nil)
	stream, err := f.service.CreateStream(f.ownerCtx, "acme", f.payee, rate)
	require.NoError(t, err)
	return stream.ID
}

func (f *fixture) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(f.payeeCtx, streamStart.Add(offset))
}

func TestCreateStream(t *testing.T) {
	t.Run("registers on chain then mirrors locally", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		stream, err := f.streams.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(30), stream.Rate)
		assert.Zero(t, stream.TotalClaimed)
	})

	t.Run("only the company owner can open streams", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.CreateStream(f.payeeCtx, "acme", f.payee, 30)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("chain failure leaves no stream", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().
			CreateStream(gomock.Any(), gomock.Any(), gomock.Any(), domain.Handle("acme"), f.payee, int64(30)).
			Return(ledger.TxResult{}, errors.New("sequencer unreachable"))

		_, err := f.service.CreateStream(f.ownerCtx, "acme", f.payee, 30)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerSubmitFailed))
	})
}

func TestClaim(t *testing.T) {
	t.Run("pays out two days of accrual", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		f.chain.EXPECT().
			ClaimStream(gomock.Any(), gomock.Any(), id, int64(60)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xc1"}, nil)

		result, err := f.service.Claim(f.at(48*time.Hour), id)
		require.NoError(t, err)
		assert.Equal(t, int64(60), result.Amount)
		assert.Equal(t, int64(60), result.TotalClaimed)

		stream, err := f.streams.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(60), stream.TotalClaimed)

		rows, err := f.payments.ListByParty(context.Background(), "acme")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, paymentmodels.TypeStream, rows[0].Type)
		assert.Equal(t, "0xc1", rows[0].Reference)
	})

	t.Run("back-to-back claims never double pay", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		f.chain.EXPECT().
			ClaimStream(gomock.Any(), gomock.Any(), id, int64(60)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xc1"}, nil).
			Times(1)

		first, err := f.service.Claim(f.at(48*time.Hour), id)
		require.NoError(t, err)
		assert.Equal(t, int64(60), first.Amount)

		// Nothing new has accrued; the second claim is a free no-op.
		second, err := f.service.Claim(f.at(48*time.Hour), id)
		require.NoError(t, err)
		assert.Zero(t, second.Amount)
		assert.Equal(t, int64(60), second.TotalClaimed)
	})

	t.Run("concurrent claims collapse into one payout", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		f.chain.EXPECT().
			ClaimStream(gomock.Any(), gomock.Any(), id, int64(60)).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xc1"}, nil).
			Times(1)

		ctx := f.at(48 * time.Hour)
		var wg sync.WaitGroup
		var total int64
		var mu sync.Mutex
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := f.service.Claim(ctx, id)
				assert.NoError(t, err)
				mu.Lock()
				total += result.Amount
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(60), total, "the same accrual must never be paid twice")
	})

	t.Run("failed chain claim does not advance the counter", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		gomock.InOrder(
			f.chain.EXPECT().
				ClaimStream(gomock.Any(), gomock.Any(), id, int64(60)).
				Return(ledger.TxResult{}, errors.New("sequencer unreachable")),
			f.chain.EXPECT().
				ClaimStream(gomock.Any(), gomock.Any(), id, int64(60)).
				Return(ledger.TxResult{Confirmed: true, Reference: "0xc1"}, nil),
		)

		_, err := f.service.Claim(f.at(48*time.Hour), id)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerSubmitFailed))

		stream, err := f.streams.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Zero(t, stream.TotalClaimed)

		// The full amount remains claimable.
		result, err := f.service.Claim(f.at(48*time.Hour), id)
		require.NoError(t, err)
		assert.Equal(t, int64(60), result.Amount)
	})

	t.Run("only the payee can claim", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		ctx := requestcontext.WithTime(f.ownerCtx, streamStart.Add(48*time.Hour))
		_, err := f.service.Claim(ctx, id)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("claim before anything accrues is a no-op", func(t *testing.T) {
		f := newFixture(t)
		id := f.openStream(t, 30)

		result, err := f.service.Claim(f.at(time.Minute), id)
		require.NoError(t, err)
		assert.Zero(t, result.Amount)
	})
}

func TestGetStream(t *testing.T) {
	f := newFixture(t)
	id := f.openStream(t, 30)

	status, err := f.service.GetStream(f.at(24*time.Hour), id)
	require.NoError(t, err)
	assert.Equal(t, int64(30), status.Accrued)
	assert.Equal(t, int64(30), status.Claimable)
}
