package render

import (
	"strings"
	"time"
)

const displayDateLayout = "January 2, 2006"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// FormatDate formats a stored date for display. ok is false for blank input.
// Year-only and year-month values keep their precision; anything that does
// not parse is returned unchanged.
func FormatDate(s string) (out string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDateLayout), true
		}
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Format("January 2006"), true
	}
	if t, err := time.Parse("2006", s); err == nil {
		return t.Format("2006"), true
	}
	return s, true
}
