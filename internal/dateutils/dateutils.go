// Package dateutils provides the calendar-date helpers used by the ledger pipeline.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Date layouts used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutMonth    = "2006-01"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutUS       = "01/02/2006"
)

// parseLayouts is tried in order before falling back to dateparse. Slash dates
// are read month-first, dotted and dashed day-first dates day-first.
var parseLayouts = []string{
	DateLayoutISO,
	DateLayoutFull,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/1/2",
	DateLayoutUS,
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06",
	"2006.01.02",
	DateLayoutEuropean,
	"2.1.2006",
	"02-01-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"Mon, 02 Jan 2006",
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ParseDate parses a date cell and returns the calendar date at UTC midnight
// together with the layout that matched. Cells no fixed layout accepts go
// through dateparse, which reports the layout it inferred when it can.
func ParseDate(dateStr string) (time.Time, string, error) {
	clean := CleanDateString(dateStr)
	if clean == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return TruncateToDay(t), layout, nil
		}
	}

	if t, err := dateparse.ParseIn(clean, time.UTC); err == nil {
		layout, _ := dateparse.ParseFormat(clean)
		return TruncateToDay(t), layout, nil
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// TruncateToDay drops the time of day, keeping the calendar date as seen in
// the value's own location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Yesterday returns the calendar day before now.
func Yesterday(now time.Time) time.Time {
	return TruncateToDay(now).AddDate(0, 0, -1)
}

// ToISODate formats a date as YYYY-MM-DD.
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// ToMonth formats a date as YYYY-MM.
func ToMonth(date time.Time) string {
	return date.Format(DateLayoutMonth)
}

// IsWeekend checks if a date falls on a Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	day := date.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// StartOfWeek returns the Monday of the week containing date.
func StartOfWeek(date time.Time) time.Time {
	d := TruncateToDay(date)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(TruncateToDay(b).Sub(TruncateToDay(a)).Hours() / 24)
}
