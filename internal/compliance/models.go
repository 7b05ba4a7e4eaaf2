// Package compliance freezes the regulatory state of an order at creation
// time into a write-once snapshot. The snapshot is the audit-of-record:
// regulators must be able to reconstruct what was known and verified at time
// of sale even if product flags or address data change later.
package compliance

import (
	"time"

	"github.com/google/uuid"

	"ordergate/internal/ageverify"
)

// AddressEligibility is the frozen outcome of address validation.
type AddressEligibility struct {
	AddressID uuid.UUID `json:"addressId"`
	Eligible  bool      `json:"eligible"`
	PoBox     bool      `json:"poBox"`
}

// ProductFlags are the per-product regulatory facts at purchase time.
type ProductFlags struct {
	ProductID         uuid.UUID `json:"productId"`
	NicotineMgPerML   float64   `json:"nicotineMgPerMl"`
	RegulatorApproved bool      `json:"regulatorApproved"`
	FlavorRestricted  bool      `json:"flavorRestricted"`
}

// AgeVerificationOutcome is the frozen verification result.
type AgeVerificationOutcome struct {
	Status      string    `json:"status"`
	ReferenceID string    `json:"referenceId"`
	ReasonCode  string    `json:"reasonCode"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

// Snapshot is the write-once aggregate. Exactly one exists per order,
// created atomically with it and never mutated afterward.
type Snapshot struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	AgeVerification    AgeVerificationOutcome
	AddressEligibility AddressEligibility
	ProductFlags       []ProductFlags
	CreatedAt          time.Time
}

// Builder assembles snapshots. Pure aggregation, no I/O.
type Builder struct{}

func NewBuilder() Builder { return Builder{} }

// Build freezes the given determinations into a snapshot.
func (Builder) Build(verification ageverify.Result, eligibility AddressEligibility, flags []ProductFlags, now time.Time) Snapshot {
	return Snapshot{
		ID: uuid.New(),
		AgeVerification: AgeVerificationOutcome{
			Status:      string(verification.Status),
			ReferenceID: verification.ReferenceID,
			ReasonCode:  verification.ReasonCode,
			VerifiedAt:  verification.VerifiedAt,
		},
		AddressEligibility: eligibility,
		ProductFlags:       flags,
		CreatedAt:          now,
	}
}
