package canonical

import (
	"errors"
	"testing"
	"time"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

func rawTable(withCountry bool, rows ...models.RawRecord) models.RawTable {
	cols := []string{"datePaid", "amountInHomeCurrency", "category", "notes"}
	if withCountry {
		cols = append(cols, "country")
	}
	return models.RawTable{Columns: cols, Records: rows}
}

func row(date, amount, category, country string) models.RawRecord {
	return models.RawRecord{
		"datePaid":             date,
		"amountInHomeCurrency": amount,
		"category":             category,
		"country":              country,
		"notes":                "ignored",
	}
}

func TestCanonicalize_CleansRows(t *testing.T) {
	logger := logging.NewMockLogger()
	c := New(DefaultOptions(), logger)

	result, err := c.Canonicalize(rawTable(true,
		row("2024-03-01", "€1,234.50", "  food ", "france"),
		row("03/02/2024", "-45.00", "TRANSPORT", " new zealand "),
	), asOf)
	require.NoError(t, err)

	require.Len(t, result.Ledger.Records, 2)
	assert.True(t, result.Ledger.HasCountry)
	assert.Equal(t, 2, result.Input)
	assert.Zero(t, result.Drops.Total())

	first := result.Ledger.Records[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "1234.5", first.Amount.String())
	assert.Equal(t, "Food", first.Category)
	assert.Equal(t, "France", first.Country)
	assert.Equal(t, "2024-03", first.Month)

	second := result.Ledger.Records[1]
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), second.Date)
	assert.Equal(t, "45", second.Amount.String())
	assert.Equal(t, "Transport", second.Category)
	assert.Equal(t, "New Zealand", second.Country)

	assert.True(t, logger.HasEntry("INFO", "Canonicalized ledger"))
	kept, ok := logger.FieldValue("Canonicalized ledger", logging.FieldKept)
	require.True(t, ok)
	assert.Equal(t, 2, kept)
}

func TestCanonicalize_DropReasons(t *testing.T) {
	tests := []struct {
		name   string
		row    models.RawRecord
		reason DropReason
	}{
		{"unparseable date", row("not a date", "10", "Food", "France"), DropMissingDate},
		{"empty date", row("", "10", "Food", "France"), DropMissingDate},
		{"empty amount", row("2024-03-01", "", "Food", "France"), DropInvalidAmount},
		{"symbols only", row("2024-03-01", "n/a", "Food", "France"), DropInvalidAmount},
		{"two decimal points", row("2024-03-01", "1.2.3", "Food", "France"), DropInvalidAmount},
		{"blank category", row("2024-03-01", "10", "   ", "France"), DropMissingCategory},
		{"flights", row("2024-03-01", "10", "Flights", "France"), DropExcludedCategory},
		{"flights before normalization", row("2024-03-01", "10", " flights ", "France"), DropExcludedCategory},
		{"as-of day", row("2024-03-10", "10", "Food", "France"), DropAfterCutoff},
		{"future", row("2025-01-01", "10", "Food", "France"), DropAfterCutoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(DefaultOptions(), logging.NewMockLogger())
			keep := row("2024-03-09", "1", "Food", "France")

			result, err := c.Canonicalize(rawTable(true, keep, tt.row), asOf)
			require.NoError(t, err)

			assert.Equal(t, 1, result.Ledger.Len())
			assert.Equal(t, DropCounts{tt.reason: 1}, result.Drops)
		})
	}
}

func TestCanonicalize_FirstFailingStepWins(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	// Bad date and Flights: the date check runs first.
	result, err := c.Canonicalize(rawTable(false,
		row("garbage", "10", "Flights", ""),
		row("2024-03-01", "x", "Flights", ""),
		row("2024-03-05", "10", "Food", ""),
	), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Drops[DropMissingDate])
	assert.Equal(t, 1, result.Drops[DropInvalidAmount])
	assert.Equal(t, 0, result.Drops[DropExcludedCategory])
}

func TestCanonicalize_SchemaError(t *testing.T) {
	logger := logging.NewMockLogger()
	c := New(DefaultOptions(), logger)

	raw := models.RawTable{
		Columns: []string{"datePaid", "category"},
		Records: []models.RawRecord{{"datePaid": "2024-03-01", "category": "Food"}},
	}
	_, err := c.Canonicalize(raw, asOf)
	require.Error(t, err)

	var schemaErr *ledgererror.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"amountInHomeCurrency"}, schemaErr.Missing)
	assert.True(t, logger.HasEntry("ERROR", "Raw ledger failed schema check"))
	assert.False(t, logger.HasEntry("INFO", "Canonicalized ledger"))
}

func TestCanonicalize_SchemaErrorListsEveryColumn(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	_, err := c.Canonicalize(models.RawTable{Columns: []string{"country"}}, asOf)

	var schemaErr *ledgererror.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"datePaid", "amountInHomeCurrency", "category"}, schemaErr.Missing)
}

func TestCanonicalize_ColumnsInferredFromRecords(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	raw := models.RawTable{Records: []models.RawRecord{
		{"datePaid": "2024-03-01", "amountInHomeCurrency": "5", "category": "food"},
	}}
	result, err := c.Canonicalize(raw, asOf)
	require.NoError(t, err)
	assert.False(t, result.Ledger.HasCountry)
	assert.Equal(t, "", result.Ledger.Records[0].Country)
}

func TestCanonicalize_EmptyResult(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	result, err := c.Canonicalize(rawTable(false,
		row("2024-03-10", "10", "Food", ""),
		row("2024-03-11", "10", "Food", ""),
		row("2024-03-01", "", "Food", ""),
	), asOf)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ledgererror.ErrEmptyResult))
	assert.False(t, ledgererror.IsSchemaError(err))
	assert.True(t, result.Ledger.IsEmpty())
	assert.Equal(t, 3, result.Input)

	var emptyErr *ledgererror.EmptyResultError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, map[string]int{"after_cutoff": 2, "invalid_amount": 1}, emptyErr.Drops)
}

func TestCanonicalize_HeaderOnly(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	_, err := c.Canonicalize(rawTable(true), asOf)
	assert.ErrorIs(t, err, ledgererror.ErrEmptyResult)
}

func TestCanonicalize_LogsDropsPerReason(t *testing.T) {
	logger := logging.NewMockLogger()
	c := New(DefaultOptions(), logger)

	_, err := c.Canonicalize(rawTable(false,
		row("2024-03-01", "10", "Flights", ""),
		row("2024-03-01", "10", "Flights", ""),
		row("2024-03-01", "10", "Food", ""),
	), asOf)
	require.NoError(t, err)

	debug := logger.GetEntriesByLevel("DEBUG")
	require.Len(t, debug, 1)
	assert.Contains(t, debug[0].Fields, logging.F(logging.FieldReason, "excluded_category"))
	assert.Contains(t, debug[0].Fields, logging.F(logging.FieldCount, 2))
}

func TestCanonicalize_CustomOptions(t *testing.T) {
	c := New(Options{
		Columns:          ColumnMapping{Date: "when", Amount: "eur", Category: "what"},
		ExcludedCategory: "rent",
		DecimalComma:     true,
	}, logging.NewMockLogger())

	raw := models.RawTable{
		Columns: []string{"when", "eur", "what"},
		Records: []models.RawRecord{
			{"when": "01.03.2024", "eur": "1.234,50 €", "what": "Food"},
			{"when": "02.03.2024", "eur": "900", "what": "Rent"},
			{"when": "03.03.2024", "eur": "12", "what": "Flights"},
		},
	}
	result, err := c.Canonicalize(raw, asOf)
	require.NoError(t, err)

	require.Len(t, result.Ledger.Records, 2)
	assert.Equal(t, "1234.5", result.Ledger.Records[0].Amount.String())
	assert.Equal(t, "Flights", result.Ledger.Records[1].Category)
	assert.Equal(t, 1, result.Drops[DropExcludedCategory])
	assert.False(t, result.Ledger.HasCountry)
}

// Properties that must hold for any input.
func TestCanonicalize_Invariants(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())

	result, err := c.Canonicalize(rawTable(true,
		row("2024-03-09", "-12.5", "food", "italy"),
		row("2024-01-31", "$3", "flights", "italy"),
		row("2024-02-29", "0", "lodging", ""),
		row("2024-03-10", "99", "food", "italy"),
		row("Jan 5, 2024", "7,000.10", "shopping", "spain"),
	), asOf)
	require.NoError(t, err)

	cutoff := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, r := range result.Ledger.Records {
		assert.False(t, r.Amount.IsNegative(), "amount %s", r.Amount)
		assert.NotEqual(t, "Flights", r.Category)
		assert.False(t, r.Date.After(cutoff), "date %s", r.Date)
		assert.Equal(t, r.Date.Format("2006-01"), r.Month)
	}
	assert.Equal(t, result.Input, result.Ledger.Len()+result.Drops.Total())
}

func TestToTable(t *testing.T) {
	c := New(DefaultOptions(), logging.NewMockLogger())
	result, err := c.Canonicalize(rawTable(true, row("2024-03-01", "10.5", "food", "france")), asOf)
	require.NoError(t, err)

	table := ToTable(result.Ledger)
	assert.Equal(t, CleanedDataSheet, table.Name)
	assert.Equal(t, []string{"Date", "Amount", "Category", "Country", "Month"}, table.Columns)
	assert.Equal(t, [][]string{{"2024-03-01", "10.50", "Food", "France", "2024-03"}}, table.Rows)

	noCountry := ToTable(models.Ledger{Records: result.Ledger.Records})
	assert.Equal(t, []string{"Date", "Amount", "Category", "Month"}, noCountry.Columns)
	assert.Equal(t, [][]string{{"2024-03-01", "10.50", "Food", "2024-03"}}, noCountry.Rows)
}

func TestFromCleanedTable_Idempotent(t *testing.T) {
	custom := DefaultOptions()
	custom.ExcludedCategory = "Transfers"

	tests := []struct {
		name        string
		withCountry bool
		opts        Options
		kept        int
	}{
		{"with country", true, DefaultOptions(), 2},
		{"without country", false, DefaultOptions(), 2},
		{"custom exclusion keeps flights", true, custom, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.opts, logging.NewMockLogger())
			first, err := c.Canonicalize(rawTable(tt.withCountry,
				row("2024-03-01", "€10.456", "food", "france"),
				row("2024-02-14", "3", "museum entry", "belgium"),
				row("2024-02-15", "3", "Flights", "belgium"),
				row("2024-02-16", "7", "transfers", "belgium"),
			), asOf)
			require.NoError(t, err)
			require.Equal(t, tt.kept, first.Ledger.Len())

			table := ToTable(first.Ledger)
			second, err := FromCleanedTable(table, tt.opts, asOf, logging.NewMockLogger())
			require.NoError(t, err)

			assert.Zero(t, second.Drops.Total())
			assert.Equal(t, table, ToTable(second.Ledger))
		})
	}
}

func TestNew_NilLogger(t *testing.T) {
	c := New(Options{}, nil)
	assert.Equal(t, DefaultColumns().Date, c.Columns().Date)
	assert.Equal(t, "", c.Columns().Country)
}
