// Package audit records every order-creation attempt, success or failure,
// for regulatory traceability. Events are written to a transactional outbox
// (for successes, in the same transaction as the order itself) and relayed
// to Kafka, which is the durable audit log of record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the order pipeline.
const (
	ActionOrderCreateSucceeded = "order.create.succeeded"
	ActionOrderCreateFailed    = "order.create.failed"
	ActionStakeCallResolved    = "order.stake_call.resolved"
)

// Event is one audit entry. Keep it transport-agnostic so stores and sinks
// can fan out.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	OrderID     string    `json:"orderId,omitempty"`
	AccountID   string    `json:"accountId,omitempty"`
	Outcome     string    `json:"outcome"`
	FailureCode string    `json:"failureCode,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
}

// Store is the append-only sink behind the publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
}
