package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New("payment-gateway")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "payment-gateway", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(3))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures should not open yet after the reset.
	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback)
	useFallback, _ = b.RecordFailure()
	assert.False(t, useFallback)
	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)
}

func TestBreaker_HalfOpensAfterCooldown(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(1), WithCooldown(time.Minute))
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	now = now.Add(30 * time.Second)
	assert.True(t, b.IsOpen(), "still within the cooldown")

	now = now.Add(30 * time.Second)
	assert.False(t, b.IsOpen(), "cooldown elapsed, the next call may probe")
	assert.Equal(t, StateHalfOpen, b.State())

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(1), WithCooldown(time.Minute))
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(time.Minute)
	assert.False(t, b.IsOpen())

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen(), "a failed probe starts another cooldown")

	now = now.Add(time.Minute)
	assert.False(t, b.IsOpen())
}

func TestBreaker_FailureWhileOpenStaysOpen(t *testing.T) {
	b := New("payment-gateway", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
	assert.True(t, b.IsOpen())
}
