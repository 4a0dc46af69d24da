//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"incorp/internal/payment/models"
	"incorp/internal/payment/store"
	"incorp/pkg/platform/sentinel"
	"incorp/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "payments"))
}

func (s *PostgresStoreSuite) newPayment(origin, dest, ref string, amount int64) *models.Payment {
	p, err := models.New(origin, dest, amount, models.TypeWire, "test", ref, time.Now().UTC())
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.newPayment("acme", "globex", "0x01", 10)))
	time.Sleep(5 * time.Millisecond)
	s.Require().NoError(s.store.Append(ctx, s.newPayment("globex", "acme", "0x02", 20)))

	rows, err := s.store.ListByParty(ctx, "acme")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("0x02", rows[0].Reference, "newest first")
}

func (s *PostgresStoreSuite) TestReferenceUniqueness() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.newPayment("acme", "globex", "0xdup", 10)))
	err := s.store.Append(ctx, s.newPayment("acme", "globex", "0xdup", 10))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)

	known, err := s.store.HasReference(ctx, "0xdup")
	s.Require().NoError(err)
	s.True(known)

	unknown, err := s.store.HasReference(ctx, "0xnope")
	s.Require().NoError(err)
	s.False(unknown)
}

func (s *PostgresStoreSuite) TestEmptyReferencesDoNotCollide() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.newPayment("acme", "globex", "", 10)))
	s.Require().NoError(s.store.Append(ctx, s.newPayment("acme", "globex", "", 20)))

	rows, err := s.store.ListByParty(ctx, "acme")
	s.Require().NoError(err)
	s.Len(rows, 2)
}
