//go:build integration

package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ordergate/internal/order"
	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
	"ordergate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *order.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = order.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"order_items", "orders", "addresses")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedAddress(ctx context.Context) uuid.UUID {
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO addresses (id, recipient_name, line1, city, region, postal_code, country, created_at)
		VALUES ($1, 'Ada Lovelace', '742 Evergreen Terrace', 'Springfield', 'OR', '97403', 'US', now())
	`, id)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) newOrder(ctx context.Context) order.Order {
	addrID := s.seedAddress(ctx)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return order.Order{
		ID:                uuid.New(),
		ShippingAddressID: addrID,
		BillingAddressID:  addrID,
		Status:            order.StatusAwaitingPayment,
		Items: []order.LineItem{
			{ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1099},
			{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 2499},
		},
		TotalCents: 2*1099 + 2499,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	ord := s.newOrder(ctx)

	s.Require().NoError(s.store.Create(ctx, ord))

	got, err := s.store.FindByID(ctx, ord.ID)
	s.Require().NoError(err)
	s.Equal(ord.ID, got.ID)
	s.Equal(order.StatusAwaitingPayment, got.Status)
	s.Equal(ord.TotalCents, got.TotalCents)
	s.Len(got.Items, 2)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateStatusCompareAndSet() {
	ctx := context.Background()
	ord := s.newOrder(ctx)
	s.Require().NoError(s.store.Create(ctx, ord))

	at := time.Now().UTC()
	s.Require().NoError(s.store.UpdateStatus(ctx, ord.ID,
		order.StatusAwaitingPayment, order.StatusCreated, at))

	err := s.store.UpdateStatus(ctx, ord.ID,
		order.StatusAwaitingPayment, order.StatusCancelled, at)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(ctx, ord.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusCreated, got.Status)
}

func (s *PostgresStoreSuite) TestCreateJoinsTransactionInContext() {
	ctx := context.Background()
	ord := s.newOrder(ctx)

	// A failing transaction must leave no trace of the order.
	err := txcontext.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		if err := s.store.Create(ctx, ord); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().Error(err)

	_, err = s.store.FindByID(ctx, ord.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
