package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Accepted date layouts, most specific first. Layouts without an offset are
// read in the ledger's configured zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses a client-supplied date. An empty string means now.
func ParseDate(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &Error{
		Kind:    KindInvalidDate,
		Message: fmt.Sprintf("invalid date %q: use YYYY-MM-DD or RFC 3339", raw),
	}
}

// MonthBounds returns the first and last instant (millisecond precision) of
// the month containing ref, in loc.
func MonthBounds(ref time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.Local
	}
	ref = ref.In(loc)
	from = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	to = from.AddDate(0, 1, 0).Add(-time.Millisecond)
	return from, to
}
