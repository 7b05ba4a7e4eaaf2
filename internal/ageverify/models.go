// Package ageverify adapts the external identity/age-verification provider
// and normalizes its results. A cheap local age computation short-circuits
// obviously underage customers before any paid provider call.
package ageverify

import (
	"time"

	"github.com/google/uuid"

	"ordergate/internal/address"
)

// Status is the normalized provider determination.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
	StatusPending  Status = "PENDING"

	// StatusError means no determination could be obtained (provider
	// unreachable after retries). It is never a compliance decline.
	StatusError Status = "ERROR"
)

// Result is the immutable record of one verification attempt.
type Result struct {
	ID          uuid.UUID
	Status      Status
	ReferenceID string
	ReasonCode  string
	Message     string
	VerifiedAt  time.Time
}

// Request identifies the customer to verify.
type Request struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Address     *address.Address
}

// Reason codes attached by the local precheck.
const (
	ReasonUnderage    = "UNDERAGE"
	ReasonUnavailable = "PROVIDER_UNAVAILABLE"
)
