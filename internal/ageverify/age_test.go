package ageverify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAge(t *testing.T) {
	now := date(2026, time.June, 15)

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday already passed this year", date(2000, time.March, 1), 26},
		{"21st birthday is today", date(2005, time.June, 15), 21},
		{"day before 21st birthday", date(2005, time.June, 16), 20},
		{"birthday later this year", date(2005, time.December, 31), 20},
		{"born this year", date(2026, time.January, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(tt.dob, now))
		})
	}
}

func TestAge_LeapYearBirthday(t *testing.T) {
	dob := date(2004, time.February, 29)

	// In a non-leap year the birthday is treated as not yet occurred on
	// Feb 28 and as passed on Mar 1.
	assert.Equal(t, 20, Age(dob, date(2025, time.February, 28)))
	assert.Equal(t, 21, Age(dob, date(2025, time.March, 1)))
}

func TestParseDateOfBirth(t *testing.T) {
	dob, err := ParseDateOfBirth("1990-07-04")
	require.NoError(t, err)
	assert.Equal(t, date(1990, time.July, 4), dob)

	_, err = ParseDateOfBirth("07/04/1990")
	assert.Error(t, err)

	_, err = ParseDateOfBirth("")
	assert.Error(t, err)
}
