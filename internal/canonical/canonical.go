// Package canonical turns an untrusted uploaded ledger into the canonical
// table every aggregate is computed from.
//
// Cleaning is a fixed sequence: schema check, projection, date coercion,
// month derivation, amount coercion, text normalization, the reserved
// category filter and finally the temporal cutoff. Rows failing any step are
// counted by reason and dropped, never raised.
package canonical

import (
	"strings"
	"time"

	"fjacquet/travel-ledger/internal/currencyutils"
	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanedDataSheet is the name of the canonical table in every bundle.
const CleanedDataSheet = "Cleaned_Data"

// DefaultExcludedCategory is the reserved category removed from the ledger.
const DefaultExcludedCategory = "Flights"

// Canonical column headers, as written to the Cleaned_Data table.
const (
	ColumnDate     = "Date"
	ColumnAmount   = "Amount"
	ColumnCategory = "Category"
	ColumnCountry  = "Country"
	ColumnMonth    = "Month"
)

// ColumnMapping names the raw columns that feed each canonical field.
// Country is optional: when the raw table lacks it the ledger has no country.
type ColumnMapping struct {
	Date     string
	Amount   string
	Category string
	Country  string
}

// DefaultColumns returns the headers of the expense tracker export.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		Date:     "datePaid",
		Amount:   "amountInHomeCurrency",
		Category: "category",
		Country:  "country",
	}
}

// CleanedColumns maps the Cleaned_Data headers onto themselves, for
// re-reading a persisted canonical table.
func CleanedColumns() ColumnMapping {
	return ColumnMapping{
		Date:     ColumnDate,
		Amount:   ColumnAmount,
		Category: ColumnCategory,
		Country:  ColumnCountry,
	}
}

func (m ColumnMapping) withDefaults() ColumnMapping {
	def := DefaultColumns()
	if m.Date == "" {
		m.Date = def.Date
	}
	if m.Amount == "" {
		m.Amount = def.Amount
	}
	if m.Category == "" {
		m.Category = def.Category
	}
	return m
}

// Options configures a Canonicalizer.
type Options struct {
	Columns ColumnMapping
	// ExcludedCategory is compared after normalization. Empty means Flights.
	ExcludedCategory string
	// DecimalComma reads amounts as "1.234,50".
	DecimalComma bool
}

// DefaultOptions returns the options matching the expense tracker export.
func DefaultOptions() Options {
	return Options{
		Columns:          DefaultColumns(),
		ExcludedCategory: DefaultExcludedCategory,
	}
}

// DropReason is why a raw row did not make it into the ledger.
type DropReason string

const (
	DropMissingDate      DropReason = "missing_date"
	DropInvalidAmount    DropReason = "invalid_amount"
	DropMissingCategory  DropReason = "missing_category"
	DropExcludedCategory DropReason = "excluded_category"
	DropAfterCutoff      DropReason = "after_cutoff"
)

// DropReasons lists every reason in the order the checks run.
func DropReasons() []DropReason {
	return []DropReason{
		DropMissingDate,
		DropInvalidAmount,
		DropMissingCategory,
		DropExcludedCategory,
		DropAfterCutoff,
	}
}

// DropCounts is a histogram of dropped rows by reason.
type DropCounts map[DropReason]int

// Total returns the number of dropped rows.
func (d DropCounts) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// AsMap converts the histogram to plain string keys.
func (d DropCounts) AsMap() map[string]int {
	out := make(map[string]int, len(d))
	for reason, n := range d {
		out[string(reason)] = n
	}
	return out
}

// Result is the outcome of one canonicalization.
type Result struct {
	Ledger models.Ledger
	Drops  DropCounts
	Input  int
	// Cutoff is the last calendar date kept.
	Cutoff time.Time
}

// Canonicalizer cleans raw ledgers. It holds no per-run state and may be
// shared between goroutines.
type Canonicalizer struct {
	columns  ColumnMapping
	excluded string
	comma    bool
	logger   logging.Logger
}

// New creates a Canonicalizer.
func New(opts Options, logger logging.Logger) *Canonicalizer {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	excluded := strings.TrimSpace(opts.ExcludedCategory)
	if excluded == "" {
		excluded = DefaultExcludedCategory
	}
	return &Canonicalizer{
		columns:  opts.Columns.withDefaults(),
		excluded: newTitler().String(excluded),
		comma:    opts.DecimalComma,
		logger:   logger,
	}
}

// Columns returns the effective raw column mapping.
func (c *Canonicalizer) Columns() ColumnMapping {
	return c.columns
}

// Canonicalize cleans raw and keeps every row dated no later than the day
// before asOf.
//
// A missing required column yields a *ledgererror.SchemaError and no result.
// A run that keeps nothing returns the empty result together with a
// *ledgererror.EmptyResultError.
func (c *Canonicalizer) Canonicalize(raw models.RawTable, asOf time.Time) (Result, error) {
	present := raw.ColumnSet()
	if missing := c.missingColumns(present); len(missing) > 0 {
		err := &ledgererror.SchemaError{Missing: missing}
		c.logger.WithError(err).Error("Raw ledger failed schema check",
			logging.F(logging.FieldMissing, strings.Join(missing, ",")))
		return Result{}, err
	}

	hasCountry := c.columns.Country != "" && present[c.columns.Country]
	cutoff := dateutils.Yesterday(asOf)
	titler := newTitler()

	result := Result{
		Ledger: models.Ledger{
			Records:    make([]models.Record, 0, len(raw.Records)),
			HasCountry: hasCountry,
		},
		Drops:  DropCounts{},
		Input:  len(raw.Records),
		Cutoff: cutoff,
	}

	for _, rec := range raw.Records {
		record, reason := c.clean(rec, hasCountry, cutoff, titler)
		if reason != "" {
			result.Drops[reason]++
			continue
		}
		result.Ledger.Records = append(result.Ledger.Records, record)
	}

	c.logDrops(result)

	if result.Ledger.IsEmpty() {
		return result, &ledgererror.EmptyResultError{
			Input: result.Input,
			Drops: result.Drops.AsMap(),
		}
	}
	return result, nil
}

// clean runs the per-row steps. A non-empty reason means the row is dropped.
func (c *Canonicalizer) clean(rec models.RawRecord, hasCountry bool, cutoff time.Time, titler cases.Caser) (models.Record, DropReason) {
	date, _, err := dateutils.ParseDate(rec[c.columns.Date])
	if err != nil {
		return models.Record{}, DropMissingDate
	}

	amount, err := currencyutils.ParseAmount(rec[c.columns.Amount], c.comma)
	if err != nil {
		return models.Record{}, DropInvalidAmount
	}

	category := normalizeText(titler, rec[c.columns.Category])
	if category == "" {
		return models.Record{}, DropMissingCategory
	}
	if category == c.excluded {
		return models.Record{}, DropExcludedCategory
	}

	if date.After(cutoff) {
		return models.Record{}, DropAfterCutoff
	}

	record := models.Record{
		Date:     date,
		Amount:   amount,
		Category: category,
		Month:    dateutils.ToMonth(date),
	}
	if hasCountry {
		record.Country = normalizeText(titler, rec[c.columns.Country])
	}
	return record, ""
}

func (c *Canonicalizer) missingColumns(present map[string]bool) []string {
	var missing []string
	for _, col := range []string{c.columns.Date, c.columns.Amount, c.columns.Category} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func (c *Canonicalizer) logDrops(result Result) {
	for _, reason := range DropReasons() {
		if n := result.Drops[reason]; n > 0 {
			c.logger.Debug("Dropped rows",
				logging.F(logging.FieldReason, string(reason)),
				logging.F(logging.FieldCount, n))
		}
	}
	c.logger.Info("Canonicalized ledger",
		logging.F(logging.FieldCount, result.Input),
		logging.F(logging.FieldKept, result.Ledger.Len()),
		logging.F(logging.FieldDropped, result.Drops.Total()),
		logging.F(logging.FieldAsOf, dateutils.ToISODate(result.Cutoff.AddDate(0, 0, 1))))
}

// A Caser keeps state between calls, so each run gets its own.
func newTitler() cases.Caser {
	return cases.Title(language.Und)
}

func normalizeText(titler cases.Caser, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return titler.String(s)
}

// ToTable renders the ledger as the Cleaned_Data table. The Country column is
// present only when the ledger carries countries.
func ToTable(ledger models.Ledger) models.Table {
	columns := []string{ColumnDate, ColumnAmount, ColumnCategory}
	if ledger.HasCountry {
		columns = append(columns, ColumnCountry)
	}
	columns = append(columns, ColumnMonth)

	table := models.NewTable(CleanedDataSheet, columns...)
	for _, r := range ledger.Records {
		row := []string{dateutils.ToISODate(r.Date), models.FormatMoney(r.Amount), r.Category}
		if ledger.HasCountry {
			row = append(row, r.Country)
		}
		row = append(row, r.Month)
		table.Append(row...)
	}
	return table
}

// FromCleanedTable rebuilds a ledger from a persisted Cleaned_Data table.
// The rows go through the same cleaning as an upload, so a table written by
// ToTable with the same excluded category comes back unchanged. Only
// opts.ExcludedCategory is used: the columns are the canonical ones and
// amounts were written with a decimal point.
func FromCleanedTable(table models.Table, opts Options, asOf time.Time, logger logging.Logger) (Result, error) {
	c := New(Options{Columns: CleanedColumns(), ExcludedCategory: opts.ExcludedCategory}, logger)
	return c.Canonicalize(table.RawTable(), asOf)
}
