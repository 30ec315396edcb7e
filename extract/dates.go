package extract

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads the ISO-like timestamps sources publish. Values
// without a zone are taken in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateDMY builds a calendar date at midnight in loc, rejecting days and
// months that would roll over.
func DateDMY(day, month, year int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// DaysSince is the whole number of days from t to now, never negative.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// DaysSinceTimestamp combines ParseTimestamp and DaysSince. Unparseable
// input yields 0.
func DaysSinceTimestamp(s string, now time.Time) int {
	t, ok := ParseTimestamp(s, now.Location())
	if !ok {
		return 0
	}
	return DaysSince(t, now)
}
