package address

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "ordergate/pkg/domain-errors"
)

func TestLooksLikePoBox(t *testing.T) {
	tests := []struct {
		line1 string
		want  bool
	}{
		{"PO Box 123", true},
		{"po box 123", true},
		{"P.O. Box 42", true},
		{"  PO 99", true},
		{"PO BOX", true},
		{"123 Main Street", false},
		{"Post Road 7", false},
		{"Apollo Street 12", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.line1, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikePoBox(tt.line1))
		})
	}
}

func TestValidator_RejectsPoBox(t *testing.T) {
	v := NewValidator()

	err := v.Validate(Address{Line1: "PO Box 123", City: "Springfield"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAddressIneligible))

	var de *dErrors.Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, "PO_BOX", de.ReasonCode)
}

func TestValidator_FlagOverridesLine(t *testing.T) {
	v := NewValidator()

	// The claimed flag wins even when the street line looks ordinary.
	err := v.Validate(Address{Line1: "123 Main Street", IsPoBox: true})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAddressIneligible))

	// And the heuristic wins even when the client claims otherwise.
	err = v.Validate(Address{Line1: "P.O. Box 9", IsPoBox: false})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAddressIneligible))
}

func TestValidator_AcceptsStreetAddress(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(Address{Line1: "742 Evergreen Terrace", City: "Springfield"}))
}
