package scheduling

import (
	"errors"
	"time"
)

// ErrInvalidTime is returned when a start time string cannot be parsed
var ErrInvalidTime = errors.New("invalid time value")

// Layouts accepted for incoming start times. Zone-less values are treated as
// already UTC, never converted from a local offset.
var startTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NormalizeUTC canonicalizes a timestamp to UTC at minute precision.
// Seconds and sub-second components are discarded. Normalization happens
// exactly once, at ingestion; stored values are never re-normalized.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// ParseStartTime parses an incoming appointment start time and normalizes it.
// RFC3339 values carry an explicit zone and are converted to UTC; zone-less
// values are assumed to be UTC already.
func ParseStartTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return NormalizeUTC(t), nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NormalizeUTC(t), nil
		}
	}
	return time.Time{}, ErrInvalidTime
}
