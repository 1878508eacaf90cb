package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one untrusted row of an uploaded ledger, keyed by column name.
type RawRecord map[string]string

// RawTable is an uploaded ledger as read from a delimited file.
type RawTable struct {
	Columns []string
	Records []RawRecord
}

// ColumnSet returns the table's column names. When Columns is unset it falls
// back to the union of the record keys.
func (r RawTable) ColumnSet() map[string]bool {
	set := make(map[string]bool, len(r.Columns))
	for _, c := range r.Columns {
		set[c] = true
	}
	if len(r.Columns) == 0 {
		for _, rec := range r.Records {
			for k := range rec {
				set[k] = true
			}
		}
	}
	return set
}

// Record is a single cleaned ledger line.
type Record struct {
	Date     time.Time       // calendar date at UTC midnight
	Amount   decimal.Decimal // magnitude of spend, never negative
	Category string          // trimmed and title-cased
	Country  string          // trimmed and title-cased, empty when unknown
	Month    string          // YYYY-MM derived from Date
}

// Ledger is the canonical table: every record passed validation and filtering.
type Ledger struct {
	Records []Record
	// HasCountry is false when the upload carried no country column at all.
	HasCountry bool
}

// Len returns the number of records.
func (l Ledger) Len() int {
	return len(l.Records)
}

// IsEmpty reports whether the ledger holds no records.
func (l Ledger) IsEmpty() bool {
	return len(l.Records) == 0
}

// Total returns the sum of all amounts.
func (l Ledger) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range l.Records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// DateRange returns the earliest and latest record dates.
func (l Ledger) DateRange() DateRange {
	if len(l.Records) == 0 {
		return DateRange{}
	}
	start, end := l.Records[0].Date, l.Records[0].Date
	for _, r := range l.Records[1:] {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}
	return DateRange{Start: start, End: end}
}

// DateRange represents an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unset.
func (dr DateRange) IsZero() bool {
	return dr.Start.IsZero() || dr.End.IsZero()
}

// Days returns the inclusive day count of the range, never less than 1.
func (dr DateRange) Days() int {
	if dr.IsZero() || dr.End.Before(dr.Start) {
		return 1
	}
	days := int(dr.End.Sub(dr.Start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// String returns the range as "YYYY-MM-DD_YYYY-MM-DD".
func (dr DateRange) String() string {
	if dr.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s", dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"))
}

// FormatMoney renders a monetary value rounded to 2 decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatRatio renders a ratio rounded to 4 decimal places.
func FormatRatio(d decimal.Decimal) string {
	return d.StringFixed(4)
}
