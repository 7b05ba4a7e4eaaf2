package address

import (
	"strings"

	dErrors "ordergate/pkg/domain-errors"
)

// Validator judges whether an address may legally receive a restricted
// shipment. It is deterministic, makes no external calls, and is never
// retried.
type Validator struct{}

func NewValidator() Validator { return Validator{} }

// Validate returns nil for an eligible address or an ADDRESS_INELIGIBLE
// domain error. PO boxes cannot receive age-restricted shipments because no
// in-person age check happens at delivery.
func (Validator) Validate(addr Address) error {
	if addr.IsPoBox || LooksLikePoBox(addr.Line1) {
		return dErrors.New(dErrors.CodeAddressIneligible,
			"restricted products cannot ship to a PO box").WithReason("PO_BOX")
	}
	return nil
}

// LooksLikePoBox applies the PO-box heuristics to an address line:
// a case-insensitive match on "po box" or "p.o. box", or a line beginning
// with "po ".
func LooksLikePoBox(line1 string) bool {
	line := strings.ToLower(strings.TrimSpace(line1))
	if strings.Contains(line, "po box") || strings.Contains(line, "p.o. box") {
		return true
	}
	return strings.HasPrefix(line, "po ")
}
