// Package isotime formats and leniently parses ISO-8601 timestamps.
// Unparseable input yields nil rather than an error.
package isotime

import (
	"strings"
	"time"
)

// Now is the clock used by NowISO and Today. Tests may replace it.
var Now = func() time.Time { return time.Now().UTC() }

const layout = "2006-01-02T15:04:05.000000Z07:00"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NowISO returns the current UTC instant with a trailing Z.
func NowISO() string {
	return Now().UTC().Format(layout)
}

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return Now().UTC().Format("2006-01-02")
}

// Format renders t like NowISO. A nil time renders as "".
func Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(layout)
}

// ParseDateTime accepts RFC 3339 timestamps with a Z or numeric offset,
// naive timestamps (taken as UTC) and bare dates (midnight UTC).
func ParseDateTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range dateTimeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// ParseDate returns the calendar date of s at midnight UTC. Full
// timestamps are accepted and truncated to their UTC date.
func ParseDate(s string) *time.Time {
	t := ParseDateTime(s)
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// FormatDate renders a date as YYYY-MM-DD. A nil date renders as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
