// Package timeutil provides the harvester's timestamp parsing and
// formatting conventions: ISO-8601 first, with a fallback to whatever
// format a feed actually sends.
package timeutil

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// IsoNow returns the current UTC instant truncated to whole seconds and
// rendered as RFC3339 with a literal "Z", matching the original
// implementation's iso_now() exactly so existing manifests/snapshots stay
// comparable byte-for-byte across a reimplementation.
func IsoNow() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05") + "Z"
}

// IsoDateToday returns today's UTC date as YYYY-MM-DD.
func IsoDateToday() string {
	return time.Now().UTC().Format("2006-01-02")
}

// ParseDateTime parses a feed/API timestamp. It tries RFC3339 first (the
// fast, unambiguous path nearly every modern API uses), then falls back to
// dateparse's heuristics for the RFC 822 and locale-flavored formats older
// RSS/Atom feeds emit. A timestamp with no zone offset is treated as UTC.
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseDateTimePtr is ParseDateTime but returns nil instead of an error for
// blank input, and a pointer result for the many optional timestamp fields
// in the data model.
func ParseDateTimePtr(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := ParseDateTime(value)
	if err != nil {
		return nil
	}
	return &t
}
