package aggregate

import (
	"sort"
	"strconv"
	"time"

	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// DailyBudgetPerCountry is each country's spend over the number of distinct
// days with a transaction there, cheapest country first.
func DailyBudgetPerCountry(ledger models.Ledger, opts Options) models.Table {
	table := models.NewTable(SheetCountryDailyBudget, "Country", "Total_Spend", "Total_Days", "Avg_Daily_Budget")
	if !countryLedger(ledger) {
		return table
	}

	skip := toSet(opts.BudgetExcludedCountries)
	keys, groups := groupBy(ledger.Records, func(r models.Record) string {
		if excluded(skip, r.Country) {
			return ""
		}
		return r.Country
	})

	sort.SliceStable(keys, func(i, j int) bool {
		return groups[keys[i]].perDay().LessThan(groups[keys[j]].perDay())
	})

	for _, k := range keys {
		g := groups[k]
		table.Append(k, models.FormatMoney(g.sum), strconv.Itoa(len(g.days)), models.FormatMoney(g.perDay()))
	}
	return table
}

// DailyAverageCategoryPerCountry splits each country's spend by category and
// divides by the days spent in that country. The day count covers every
// transaction in the country, including excluded categories.
func DailyAverageCategoryPerCountry(ledger models.Ledger, opts Options) models.Table {
	table := models.NewTable(SheetCountryCategoryDailyAvg, "Country", "Category", "Amount", "Days_in_Country", "Daily_Avg")
	if !countryLedger(ledger) {
		return table
	}

	countryKeys, countries := groupBy(ledger.Records, byCountry)
	skip := toSet(opts.CountryCategoryExcluded)

	type cell struct {
		country  string
		category string
		sum      decimal.Decimal
		days     int
		avg      decimal.Decimal
	}
	var cells []cell

	for _, country := range countryKeys {
		days := len(countries[country].days)
		catKeys, cats := groupBy(ledger.Records, func(r models.Record) string {
			if r.Country != country || excluded(skip, r.Category) {
				return ""
			}
			return r.Category
		})
		for _, cat := range catKeys {
			sum := cats[cat].sum
			cells = append(cells, cell{
				country:  country,
				category: cat,
				sum:      sum,
				days:     days,
				avg:      safeDiv(sum, decimal.NewFromInt(int64(days))),
			})
		}
	}

	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].country != cells[j].country {
			return cells[i].country < cells[j].country
		}
		return cells[i].avg.GreaterThan(cells[j].avg)
	})

	for _, c := range cells {
		table.Append(c.country, c.category, models.FormatMoney(c.sum), strconv.Itoa(c.days), models.FormatMoney(c.avg))
	}
	return table
}

// TotalSpendPerCountry sums spend per country, smallest total first.
func TotalSpendPerCountry(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetCountryTotalSpend, "Country", "Total_Spend")
	if !countryLedger(ledger) {
		return table
	}

	keys, groups := groupBy(ledger.Records, byCountry)
	sort.SliceStable(keys, func(i, j int) bool {
		return groups[keys[i]].sum.LessThan(groups[keys[j]].sum)
	})

	for _, k := range keys {
		table.Append(k, models.FormatMoney(groups[k].sum))
	}
	return table
}

// CumulativeSpendPerCountryByDay is the burn curve of each country on a
// relative axis: Day 1 is the first date with spend in the country, Day 2 the
// next such date, whatever the calendar gap between them.
func CumulativeSpendPerCountryByDay(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetCountryCumulativeBurn, "Country", "Day", "Date", "Amount", "Cumulative_Total")
	if !countryLedger(ledger) {
		return table
	}

	countries, _ := groupBy(ledger.Records, byCountry)
	for _, country := range countries {
		// ISO date keys sort chronologically, so day indexes follow the calendar.
		dates, perDate := groupBy(ledger.Records, func(r models.Record) string {
			if r.Country != country {
				return ""
			}
			return dateutils.ToISODate(r.Date)
		})

		running := decimal.Zero
		for i, d := range dates {
			amount := perDate[d].sum
			running = running.Add(amount)
			table.Append(country, strconv.Itoa(i+1), d, models.FormatMoney(amount), models.FormatMoney(running))
		}
	}
	return table
}

// ComparativeWeeklySpending lines the countries up by relative week: week 1
// starts on each country's first transaction date. The result is pivoted
// with one column per country; weeks without spend there read 0.00.
func ComparativeWeeklySpending(ledger models.Ledger, _ Options) models.Table {
	if !countryLedger(ledger) {
		return models.NewTable(SheetCountryWeeklyComparison, "Week_Num")
	}

	countries, _ := groupBy(ledger.Records, byCountry)
	first := make(map[string]time.Time, len(countries))
	for _, r := range ledger.Records {
		if d, ok := first[r.Country]; !ok || r.Date.Before(d) {
			first[r.Country] = r.Date
		}
	}

	sums := make(map[string]map[int]decimal.Decimal, len(countries))
	maxWeek := 0
	for _, r := range ledger.Records {
		if r.Country == "" {
			continue
		}
		week := dateutils.DaysBetween(first[r.Country], r.Date)/7 + 1
		if sums[r.Country] == nil {
			sums[r.Country] = make(map[int]decimal.Decimal)
		}
		sums[r.Country][week] = sums[r.Country][week].Add(r.Amount)
		if week > maxWeek {
			maxWeek = week
		}
	}

	table := models.NewTable(SheetCountryWeeklyComparison, append([]string{"Week_Num"}, countries...)...)
	for week := 1; week <= maxWeek; week++ {
		row := make([]string, 0, len(countries)+1)
		row = append(row, strconv.Itoa(week))
		hasSpend := false
		for _, c := range countries {
			v, ok := sums[c][week]
			hasSpend = hasSpend || ok
			row = append(row, models.FormatMoney(v))
		}
		if hasSpend {
			table.Append(row...)
		}
	}
	return table
}
