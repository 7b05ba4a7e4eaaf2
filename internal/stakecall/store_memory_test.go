package stakecall

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordergate/pkg/platform/sentinel"
)

func pendingCall(orderID uuid.UUID, invokedAt time.Time) StakeCall {
	return StakeCall{
		ID:        uuid.New(),
		OrderID:   orderID,
		Result:    ResultPending,
		InvokedAt: invokedAt,
	}
}

func TestMemoryStore_FindLatestByOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orderID := uuid.New()
	base := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	older := pendingCall(orderID, base)
	newer := pendingCall(orderID, base.Add(time.Hour))
	other := pendingCall(uuid.New(), base.Add(2*time.Hour))
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))
	require.NoError(t, store.Create(ctx, other))

	got, err := store.FindLatestByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = store.FindLatestByOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_ResolveOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	call := pendingCall(uuid.New(), time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Create(ctx, call))

	at := call.InvokedAt.Add(time.Hour)
	require.NoError(t, store.Resolve(ctx, call.ID, ResultPassed, "VERIFIED", at))

	err := store.Resolve(ctx, call.ID, ResultFailed, "", at)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := store.FindByID(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultPassed, got.Result)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, at, *got.ResolvedAt)
}
