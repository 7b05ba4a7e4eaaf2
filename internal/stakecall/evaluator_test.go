package stakecall

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_FirstTimeRecipientTriggers(t *testing.T) {
	e := NewEvaluator()
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	eval := e.Evaluate(OrderContext{FirstTimeRecipient: true}, now)
	require.True(t, eval.Required)
	require.NotNil(t, eval.StakeCall)
	assert.Equal(t, ResultPending, eval.StakeCall.Result)
	assert.Equal(t, now, eval.StakeCall.InvokedAt)
	assert.Nil(t, eval.StakeCall.ResolvedAt)
	assert.NotEqual(t, uuid.Nil, eval.StakeCall.ID)
}

func TestEvaluator_ReturningRecipientSkips(t *testing.T) {
	e := NewEvaluator()

	eval := e.Evaluate(OrderContext{FirstTimeRecipient: false}, time.Now())
	assert.False(t, eval.Required)
	assert.Nil(t, eval.StakeCall)
}

func TestAnyTrigger(t *testing.T) {
	guestCheckout := func(c OrderContext) bool { return c.AccountID == nil }

	e := NewEvaluator(FirstTimeRecipient, guestCheckout)
	accountID := uuid.New()

	// Neither signal fires.
	eval := e.Evaluate(OrderContext{AccountID: &accountID}, time.Now())
	assert.False(t, eval.Required)

	// The composed trigger fires on either signal.
	eval = e.Evaluate(OrderContext{AccountID: nil}, time.Now())
	assert.True(t, eval.Required)

	eval = e.Evaluate(OrderContext{AccountID: &accountID, FirstTimeRecipient: true}, time.Now())
	assert.True(t, eval.Required)
}
