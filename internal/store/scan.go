package store

import (
	"fmt"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Drivers disagree on how timestamps and dates come back: pgx yields
// time.Time, sqlite may yield time.Time or text.
func parseTimeValue(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v, true, nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	default:
		return time.Time{}, false, fmt.Errorf("unsupported time value %T", src)
	}
}

func parseTimeString(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q", s)
}

type timeScanner struct {
	dest *time.Time
}

func (s timeScanner) Scan(src any) error {
	t, _, err := parseTimeValue(src)
	if err != nil {
		return err
	}
	*s.dest = t.UTC()
	return nil
}

type nullTimeScanner struct {
	dest **time.Time
}

func (s nullTimeScanner) Scan(src any) error {
	t, ok, err := parseTimeValue(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dest = nil
		return nil
	}
	utc := t.UTC()
	*s.dest = &utc
	return nil
}

// dateScanner reads a DATE column into an ISO calendar date string.
type dateScanner struct {
	dest **string
}

func (s dateScanner) Scan(src any) error {
	t, ok, err := parseTimeValue(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dest = nil
		return nil
	}
	formatted := t.Format("2006-01-02")
	*s.dest = &formatted
	return nil
}

func scanTime(dest *time.Time) timeScanner          { return timeScanner{dest: dest} }
func scanNullTime(dest **time.Time) nullTimeScanner { return nullTimeScanner{dest: dest} }
func scanDate(dest **string) dateScanner            { return dateScanner{dest: dest} }

// dateArg converts an optional ISO date to a driver argument.
func dateArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func jsonArg(raw []byte, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	return string(raw)
}
