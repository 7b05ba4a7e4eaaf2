// Package payment adapts the external payment gateway. It authorizes funds
// without ever persisting the raw instrument: only the gateway transaction
// id, status, and the card's last four digits survive.
package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status of a payment transaction.
type Status string

const (
	StatusAuthorized Status = "AUTHORIZED"
	StatusDeclined   Status = "DECLINED"
)

// Transaction is what we are allowed to keep about an authorization.
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	GatewayTxnID string    `json:"gatewayTxnId"`
	AmountCents  int64     `json:"amountCents"`
	Status       Status    `json:"status"`
	ResponseCode string    `json:"responseCode"`
	CardLast4    string    `json:"cardLast4"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Card holds the raw instrument for the duration of one authorization call.
// It must never be persisted or logged.
type Card struct {
	Number         string
	ExpirationDate string // MM/YY
	CVV            string
}

// Last4 returns the card's last four digits, the only part of the number
// that may be stored.
func (c Card) Last4() string {
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// DeclineError carries the gateway's reason codes verbatim so callers can
// render an actionable message.
type DeclineError struct {
	ResponseCode string
	ReasonCodes  []string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s %v", e.ResponseCode, e.ReasonCodes)
}
