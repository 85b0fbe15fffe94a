package roster

import (
	"strings"
	"time"
)

// DateLayout is the format written by Export.
const DateLayout = "2006-01-02"

var blankDates = map[string]bool{"none": true, "null": true, "nan": true, "#value!": true}

// Day-first layouts are tried before month-first ones, so 03/04/2025 is 3 April.
var dateLayouts = []string{
	"2006-01-02",
	"2006/1/2",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate reads a spreadsheet date cell. Blank, placeholder and unparseable
// values yield nil.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || blankDates[strings.ToLower(value)] {
		return nil
	}
	// receipts are sometimes annotated with a payment suffix
	value = strings.TrimSpace(strings.NewReplacer("CA", "", "CC", "").Replace(value))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// FormatDate renders an optional date for export.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// AddMonth returns the same day next month, clamped to that month's last day.
func AddMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, 0, 0, 0, 0, t.Location())
}
