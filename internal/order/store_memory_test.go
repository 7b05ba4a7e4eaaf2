package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordergate/pkg/platform/sentinel"
)

func testOrder(status Status) Order {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	return Order{
		ID:                uuid.New(),
		ShippingAddressID: uuid.New(),
		BillingAddressID:  uuid.New(),
		Status:            status,
		Items:             []LineItem{{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 1099}},
		TotalCents:        1099,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ord := testOrder(StatusCreated)

	require.NoError(t, store.Create(ctx, ord))
	assert.ErrorIs(t, store.Create(ctx, ord), sentinel.ErrConflict)

	got, err := store.FindByID(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, ord.ID, got.ID)
	assert.Equal(t, ord.TotalCents, got.TotalCents)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_UpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ord := testOrder(StatusAwaitingStakeCall)
	require.NoError(t, store.Create(ctx, ord))

	at := ord.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.UpdateStatus(ctx, ord.ID, StatusAwaitingStakeCall, StatusCreated, at))

	// A second transition from the stale status loses the race.
	err := store.UpdateStatus(ctx, ord.ID, StatusAwaitingStakeCall, StatusCancelled, at)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := store.FindByID(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, got.Status)
	assert.Equal(t, at, got.UpdatedAt)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ord := testOrder(StatusCreated)
	require.NoError(t, store.Create(ctx, ord))

	got, err := store.FindByID(ctx, ord.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := store.FindByID(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}
