package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"incorp/internal/audit"
	"incorp/internal/ledger"
	"incorp/internal/ledger/mocks"
	"incorp/internal/user/store"
	"incorp/pkg/domain"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

const callerID = "7b8a6d4e-4a6f-4bde-9f34-1f2a5c0d9e11"

type fixture struct {
	chain    *mocks.MockLedger
	profiles *store.Memory
	sink     *audit.MemoryStore
	service  *Service
	userID   domain.UserID
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockLedger(ctrl)
	profiles := store.NewMemory()
	sink := audit.NewMemoryStore()

	userID, err := domain.ParseUserID(callerID)
	require.NoError(t, err)
	ctx := requestcontext.WithUserID(context.Background(), userID)

	svc := New(profiles, chain, WithAuditPublisher(audit.NewPublisher(sink)))

	return &fixture{
		chain:    chain,
		profiles: profiles,
		sink:     sink,
		service:  svc,
		userID:   userID,
		ctx:      ctx,
	}
}

func TestProfile(t *testing.T) {
	t.Run("creates an unverified profile on first sight", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().IsVerified(gomock.Any(), f.userID).Return(false, nil)

		profile, err := f.service.Profile(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, f.userID, profile.ID)
		assert.False(t, profile.KYCVerified)
	})

	t.Run("heals a stale mirror from the chain", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().IsVerified(gomock.Any(), f.userID).Return(true, nil)

		profile, err := f.service.Profile(f.ctx)
		require.NoError(t, err)
		assert.True(t, profile.KYCVerified)

		stored, err := f.profiles.Find(context.Background(), f.userID)
		require.NoError(t, err)
		assert.True(t, stored.KYCVerified)
	})

	t.Run("a verified mirror skips the chain read", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.profiles.SetVerified(context.Background(), f.userID)
		require.NoError(t, err)

		profile, err := f.service.Profile(f.ctx)
		require.NoError(t, err)
		assert.True(t, profile.KYCVerified)
	})

	t.Run("chain read failure falls back to the mirror", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().IsVerified(gomock.Any(), f.userID).
			Return(false, errors.New("sequencer unreachable"))

		profile, err := f.service.Profile(f.ctx)
		require.NoError(t, err)
		assert.False(t, profile.KYCVerified)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Profile(context.Background())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestVerify(t *testing.T) {
	t.Run("confirms on chain then flips the mirror", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().
			VerifyUser(gomock.Any(), gomock.Any(), f.userID).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xfeed"}, nil)

		profile, err := f.service.Verify(f.ctx)
		require.NoError(t, err)
		assert.True(t, profile.KYCVerified)

		stored, err := f.profiles.Find(context.Background(), f.userID)
		require.NoError(t, err)
		assert.True(t, stored.KYCVerified)

		events := f.sink.All()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionUserVerified, events[0].Action)
		assert.Equal(t, "0xfeed", events[0].Reference)
	})

	t.Run("repeat verification is a no-op with no chain call", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().
			VerifyUser(gomock.Any(), gomock.Any(), f.userID).
			Return(ledger.TxResult{Confirmed: true, Reference: "0xfeed"}, nil).
			Times(1)

		_, err := f.service.Verify(f.ctx)
		require.NoError(t, err)

		profile, err := f.service.Verify(f.ctx)
		require.NoError(t, err)
		assert.True(t, profile.KYCVerified)
		assert.Len(t, f.sink.All(), 1)
	})

	t.Run("chain failure leaves the mirror down", func(t *testing.T) {
		f := newFixture(t)
		f.chain.EXPECT().
			VerifyUser(gomock.Any(), gomock.Any(), f.userID).
			Return(ledger.TxResult{}, errors.New("sequencer unreachable"))

		_, err := f.service.Verify(f.ctx)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerSubmitFailed))

		stored, err := f.profiles.Find(context.Background(), f.userID)
		require.NoError(t, err)
		assert.False(t, stored.KYCVerified)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Verify(context.Background())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
