// Package dateparse turns user supplied date selectors into UTC instants.
package dateparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Now is the selector for the current wall-clock instant.
const Now = "now"

// Layout is the accepted calendar date pattern, YYYY-MM-DD.
const Layout = "2006-01-02"

// ErrDateParse matches every *DateParseError via errors.Is.
var ErrDateParse = errors.New("invalid date")

// DateParseError reports a date selector that is neither "now" nor a valid
// YYYY-MM-DD calendar date.
type DateParseError struct {
	Input string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid date %q: want %q or YYYY-MM-DD: %v", e.Input, Now, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

func (e *DateParseError) Is(target error) bool { return target == ErrDateParse }

// Parse resolves input to a UTC instant. "now" (any case, surrounding spaces
// ignored) returns clock() in UTC; a calendar date resolves to midnight UTC.
// A nil clock uses time.Now.
func Parse(input string, clock func() time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(input)
	if strings.EqualFold(trimmed, Now) {
		if clock == nil {
			clock = time.Now
		}
		return clock().UTC(), nil
	}

	t, err := time.ParseInLocation(Layout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, &DateParseError{Input: input, Err: err}
	}
	return t, nil
}
