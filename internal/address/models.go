// Package address owns shipping/billing addresses and the eligibility policy
// for restricted shipments.
package address

import (
	"time"

	"github.com/google/uuid"
)

// Address is a delivery or billing address. AccountID is nil for addresses
// captured during guest checkout.
type Address struct {
	ID            uuid.UUID
	AccountID     *uuid.UUID
	RecipientName string
	Line1         string
	Line2         string
	City          string
	Region        string
	PostalCode    string
	Country       string

	// IsPoBox is caller-supplied metadata. The validator's heuristic match on
	// Line1 overrides a false value here: the legal constraint is about the
	// physical location, not what the client claims.
	IsPoBox bool

	// IsDefault marks at most one address per account. The store clears prior
	// defaults in the same transaction that sets a new one.
	IsDefault bool

	CreatedAt time.Time
}
