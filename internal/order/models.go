// Package order owns the order aggregate and the checkout request/response
// contract. The orchestration that builds an order from the compliance
// pipeline lives in order/service.
package order

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"ordergate/internal/ageverify"
	dErrors "ordergate/pkg/domain-errors"
)

// Status is the order lifecycle state. Orders that fail the pipeline are
// never persisted, so there is no failed-creation status; StatusFailed covers
// post-creation fulfillment failures.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusAwaitingStakeCall Status = "AWAITING_STAKE_CALL"
	StatusAwaitingPayment   Status = "AWAITING_PAYMENT"
	StatusCancelled         Status = "CANCELLED"
	StatusFailed            Status = "FAILED"
)

var transitions = map[Status][]Status{
	StatusAwaitingStakeCall: {StatusCreated, StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment:   {StatusCreated, StatusCancelled, StatusFailed},
	StatusCreated:           {StatusCancelled},
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Cancelled and failed orders are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one purchased product with its price frozen at order time.
type LineItem struct {
	ProductID      uuid.UUID `json:"productId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

// Order is the committed aggregate. AccountID is nil for guest checkout.
type Order struct {
	ID                   uuid.UUID
	AccountID            *uuid.UUID
	ShippingAddressID    uuid.UUID
	BillingAddressID     uuid.UUID
	Status               Status
	Items                []LineItem
	TotalCents           int64
	AgeVerificationID    uuid.UUID
	StakeCallID          *uuid.UUID
	PaymentTransactionID *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// PaymentDetails carry the raw card for a single authorization. They are
// consumed in-flight and never persisted.
type PaymentDetails struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CVV            string `json:"cvv"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	ShippingAddressID    uuid.UUID       `json:"shippingAddressId"`
	BillingAddressID     uuid.UUID       `json:"billingAddressId"`
	Items                []ItemRequest   `json:"items"`
	CustomerFirstName    string          `json:"customerFirstName"`
	CustomerLastName     string          `json:"customerLastName"`
	DateOfBirth          string          `json:"dateOfBirth"` // YYYY-MM-DD
	IsFirstTimeRecipient bool            `json:"isFirstTimeRecipient"`
	Payment              *PaymentDetails `json:"payment,omitempty"`
}

// Normalize trims free-text fields in place.
func (r *CreateOrderRequest) Normalize() {
	r.CustomerFirstName = strings.TrimSpace(r.CustomerFirstName)
	r.CustomerLastName = strings.TrimSpace(r.CustomerLastName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
}

// Validate checks structural correctness only. Eligibility, age, and payment
// outcomes are pipeline concerns, not request validation.
func (r *CreateOrderRequest) Validate(now time.Time) error {
	if r.ShippingAddressID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "shippingAddressId is required")
	}
	if r.BillingAddressID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "billingAddressId is required")
	}
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(r.Items))
	for _, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return dErrors.New(dErrors.CodeValidation, "items[].productId is required")
		}
		if item.Quantity < 1 {
			return dErrors.New(dErrors.CodeValidation, "items[].quantity must be at least 1")
		}
		if _, dup := seen[item.ProductID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate item %s", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	if r.CustomerFirstName == "" || r.CustomerLastName == "" {
		return dErrors.New(dErrors.CodeValidation, "customer name is required")
	}
	dob, err := ageverify.ParseDateOfBirth(r.DateOfBirth)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "dateOfBirth must be a valid YYYY-MM-DD date")
	}
	if dob.After(now) {
		return dErrors.New(dErrors.CodeValidation, "dateOfBirth cannot be in the future")
	}
	if p := r.Payment; p != nil {
		if p.CardNumber == "" || p.ExpirationDate == "" || p.CVV == "" {
			return dErrors.New(dErrors.CodeValidation,
				"payment requires cardNumber, expirationDate, and cvv")
		}
	}
	return nil
}

// CreateOrderResult is what a successful pipeline run returns.
type CreateOrderResult struct {
	Order                Order
	StakeCallRequired    bool
	SnapshotID           uuid.UUID
	PaymentTransactionID *uuid.UUID
}
