package marketdata

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted for range bounds
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a range bound is not a YYYY-MM-DD date
var ErrInvalidDate = errors.New("expected YYYY-MM-DD")

// DateRange resolves optional start and end dates. end defaults to the UTC
// calendar day of now and start to end minus years. Both bounds are
// inclusive.
func DateRange(startParam, endParam string, years int, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if endParam != "" {
		parsed, err := time.Parse(DateLayout, endParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endParam, ErrInvalidDate)
		}
		end = parsed
	}

	start := end.AddDate(-years, 0, 0)
	if startParam != "" {
		parsed, err := time.Parse(DateLayout, startParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startParam, ErrInvalidDate)
		}
		start = parsed
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}
