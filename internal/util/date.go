package util

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts an ISO calendar date, or a full RFC 3339 timestamp whose
// date part is kept, and returns it normalized to YYYY-MM-DD.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), nil
	}
	return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// DaysUntil counts calendar days from the date of now to date. Negative
// means date is in the past.
func DaysUntil(date string, now time.Time) (int, error) {
	due, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24), nil
}
