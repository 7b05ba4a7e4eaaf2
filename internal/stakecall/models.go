// Package stakecall decides whether an order needs a supplementary live
// re-verification before the shipment may be released, and records its
// (possibly deferred) outcome.
package stakecall

import (
	"time"

	"github.com/google/uuid"
)

// Result of a stake call. A record starts PENDING; the live re-contact runs
// asynchronously after checkout, so checkout never blocks on it.
type Result string

const (
	ResultPending Result = "PENDING"
	ResultPassed  Result = "PASSED"
	ResultFailed  Result = "FAILED"
)

// StakeCall is the secondary verification record linked to an order.
type StakeCall struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Result     Result
	ReasonCode string
	InvokedAt  time.Time
	ResolvedAt *time.Time
}

// OrderContext carries the risk signals the trigger policy may inspect.
type OrderContext struct {
	AccountID          *uuid.UUID
	ShippingAddressID  uuid.UUID
	FirstTimeRecipient bool
}

// Evaluation is the evaluator's answer. StakeCall is nil when not required.
type Evaluation struct {
	Required  bool
	StakeCall *StakeCall
}
