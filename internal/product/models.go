// Package product exposes read-only access to the catalog's regulatory data.
// The pipeline consumes products; it never writes them.
package product

import "github.com/google/uuid"

// Product carries the fields the compliance pipeline needs at purchase time.
type Product struct {
	ID                uuid.UUID
	Name              string
	NicotineMgPerML   float64
	RegulatorApproved bool
	FlavorRestricted  bool
	UnitPriceCents    int64
}
