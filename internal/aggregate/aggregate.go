// Package aggregate derives the summary tables of a canonical ledger.
//
// Every aggregator is a pure function of the ledger: it never mutates its
// input, it returns a table with a header and zero rows when there is nothing
// to show, and it can run concurrently with the others.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Sheet names of the aggregate tables.
const (
	SheetDailyAvgCategory        = "Daily_Avg_Category"
	SheetCountryDailyBudget      = "Country_Daily_Budget"
	SheetCountryCategoryDailyAvg = "Country_Category_Daily_Avg"
	SheetCountryTotalSpend       = "Country_Total_Spend"
	SheetCumulativeSpend         = "Cumulative_Spend"
	SheetCountryCumulativeBurn   = "Country_Cumulative_Burn"
	SheetCategoryPercentages     = "Category_Percentages"
	SheetWeekendVsWeekday        = "Weekend_vs_Weekday"
	SheetWeeklySpend             = "Weekly_Spend"
	SheetCountryWeeklyComparison = "Country_Weekly_Comparison"
	SheetSpendSummary            = "Spend_Summary"
)

// Func computes one summary table from a ledger.
type Func func(models.Ledger, Options) models.Table

// Aggregator is a named Func.
type Aggregator struct {
	Name string
	Fn   Func
}

// Run applies the aggregator.
func (a Aggregator) Run(ledger models.Ledger, opts Options) models.Table {
	return a.Fn(ledger, opts)
}

// Options tunes the exclusions and the budget used by the aggregators.
type Options struct {
	// BudgetExcludedCountries are left out of the per-country daily budget.
	BudgetExcludedCountries []string
	// CountryCategoryExcluded are left out of the per-country per-category average.
	CountryCategoryExcluded []string
	// TotalBudget is the trip budget the spend summary is measured against.
	TotalBudget decimal.Decimal
}

// DefaultOptions returns the exclusions and budget of a standard trip.
func DefaultOptions() Options {
	return Options{
		BudgetExcludedCountries: []string{"Ireland"},
		CountryCategoryExcluded: []string{"Flights", "Medical", "Health", "Shopping"},
		TotalBudget:             decimal.NewFromInt(20000),
	}
}

// All returns every aggregator in bundle order.
func All() []Aggregator {
	return []Aggregator{
		{Name: SheetDailyAvgCategory, Fn: DailyAveragePerCategory},
		{Name: SheetCountryDailyBudget, Fn: DailyBudgetPerCountry},
		{Name: SheetCountryCategoryDailyAvg, Fn: DailyAverageCategoryPerCountry},
		{Name: SheetCountryTotalSpend, Fn: TotalSpendPerCountry},
		{Name: SheetCumulativeSpend, Fn: CumulativeSpend},
		{Name: SheetCountryCumulativeBurn, Fn: CumulativeSpendPerCountryByDay},
		{Name: SheetCategoryPercentages, Fn: CategoryPercentages},
		{Name: SheetWeekendVsWeekday, Fn: WeekendVsWeekday},
		{Name: SheetWeeklySpend, Fn: WeeklyExpenditure},
		{Name: SheetCountryWeeklyComparison, Fn: ComparativeWeeklySpending},
		{Name: SheetSpendSummary, Fn: SpendSummary},
	}
}

// Names returns the sheet names of every aggregator in bundle order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name
	}
	return names
}

// Select returns the named aggregators in bundle order. An empty list selects all.
func Select(names []string) ([]Aggregator, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.TrimSpace(n)] = true
	}

	selected := make([]Aggregator, 0, len(wanted))
	for _, a := range all {
		if wanted[a.Name] {
			selected = append(selected, a)
			delete(wanted, a.Name)
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown aggregates: %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

// group accumulates amounts and distinct days under one key.
type group struct {
	sum   decimal.Decimal
	count int
	days  map[string]struct{}
}

func (g *group) add(r models.Record) {
	g.sum = g.sum.Add(r.Amount)
	g.count++
	if g.days == nil {
		g.days = make(map[string]struct{})
	}
	g.days[dateutils.ToISODate(r.Date)] = struct{}{}
}

// perDay divides the sum by the number of distinct days, clamped to 1.
func (g *group) perDay() decimal.Decimal {
	return safeDiv(g.sum, decimal.NewFromInt(int64(len(g.days))))
}

// groupBy buckets records by key and returns the keys in ascending order.
// Records for which key returns "" are skipped.
func groupBy(records []models.Record, key func(models.Record) string) ([]string, map[string]*group) {
	groups := make(map[string]*group)
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.add(r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// safeDiv divides, substituting 1 for a zero denominator.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		den = decimal.NewFromInt(1)
	}
	return num.Div(den)
}

func byCountry(r models.Record) string { return r.Country }

func byCategory(r models.Record) string { return r.Category }

// countryLedger reports whether country-keyed aggregates have anything to work with.
func countryLedger(ledger models.Ledger) bool {
	return ledger.HasCountry && !ledger.IsEmpty()
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

func excluded(set map[string]bool, value string) bool {
	return set[strings.ToLower(value)]
}
