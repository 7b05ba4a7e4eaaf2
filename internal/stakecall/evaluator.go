package stakecall

import (
	"time"

	"github.com/google/uuid"
)

// Trigger is a replaceable risk predicate. New signals are added as further
// Trigger funcs composed with AnyTrigger, not by editing the evaluator.
type Trigger func(OrderContext) bool

// FirstTimeRecipient is the baseline regulatory trigger: a recipient with no
// completed prior order must be re-verified live before release.
func FirstTimeRecipient(c OrderContext) bool {
	return c.FirstTimeRecipient
}

// AnyTrigger requires a stake call when any composed trigger fires.
func AnyTrigger(triggers ...Trigger) Trigger {
	return func(c OrderContext) bool {
		for _, t := range triggers {
			if t(c) {
				return true
			}
		}
		return false
	}
}

// Evaluator applies the configured trigger policy.
type Evaluator struct {
	trigger Trigger
}

// NewEvaluator builds an evaluator. With no triggers it defaults to the
// baseline first-time-recipient policy.
func NewEvaluator(triggers ...Trigger) *Evaluator {
	if len(triggers) == 0 {
		return &Evaluator{trigger: FirstTimeRecipient}
	}
	return &Evaluator{trigger: AnyTrigger(triggers...)}
}

// Evaluate decides whether a stake call is required and, if so, creates the
// PENDING record. Execution of the live re-contact is deferred; the order
// pipeline only persists the obligation.
func (e *Evaluator) Evaluate(c OrderContext, now time.Time) Evaluation {
	if !e.trigger(c) {
		return Evaluation{}
	}
	return Evaluation{
		Required: true,
		StakeCall: &StakeCall{
			ID:        uuid.New(),
			Result:    ResultPending,
			InvokedAt: now,
		},
	}
}
