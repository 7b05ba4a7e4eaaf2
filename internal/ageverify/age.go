package ageverify

import (
	"fmt"
	"time"

	dErrors "ordergate/pkg/domain-errors"
)

// ParseDateOfBirth parses the wire format YYYY-MM-DD.
func ParseDateOfBirth(s string) (time.Time, error) {
	dob, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("dateOfBirth must be YYYY-MM-DD: %q", s))
	}
	return dob, nil
}

// Age computes completed years between dob and now using exact
// year/month/day comparison. Someone is not 21 the day before their 21st
// birthday: the naive year difference is reduced by one when the birthday
// has not yet occurred this year.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
