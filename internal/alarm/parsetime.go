package alarm

import (
	"fmt"
	"time"
)

// ParseTime parses an alarm time given as an ISO-8601 datetime or as
// "HH:MM" (combined with today's date, pushed to tomorrow if already past).
func ParseTime(raw string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(time.RFC3339, raw, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, now.Location()); err == nil {
		return t, nil
	}

	hhmm, err := time.ParseInLocation("15:04", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time format %q", raw)
	}
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hhmm.Hour(), hhmm.Minute(), 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}
