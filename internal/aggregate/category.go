package aggregate

import (
	"sort"

	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// DailyAveragePerCategory divides each category's spend by the trip span,
// the inclusive number of days between the first and last record.
func DailyAveragePerCategory(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetDailyAvgCategory, "Category", "Daily_Avg")
	if ledger.IsEmpty() {
		return table
	}

	span := decimal.NewFromInt(int64(ledger.DateRange().Days()))

	keys, groups := groupBy(ledger.Records, byCategory)
	for _, k := range keys {
		table.Append(k, models.FormatMoney(safeDiv(groups[k].sum, span)))
	}
	return table
}

// CategoryPercentages gives each category's share of the grand total as a
// 4-decimal ratio, largest share first.
func CategoryPercentages(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetCategoryPercentages, "Category", "Amount", "Percentage")
	if ledger.IsEmpty() {
		return table
	}

	total := ledger.Total()
	keys, groups := groupBy(ledger.Records, byCategory)

	type share struct {
		category string
		sum      decimal.Decimal
		ratio    decimal.Decimal
	}
	shares := make([]share, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		shares = append(shares, share{category: k, sum: g.sum, ratio: safeDiv(g.sum, total)})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].ratio.GreaterThan(shares[j].ratio)
	})

	for _, s := range shares {
		table.Append(s.category, models.FormatMoney(s.sum), models.FormatRatio(s.ratio))
	}
	return table
}

// WeekendVsWeekday compares the mean transaction amount on Saturdays and
// Sundays against the rest of the week. A class with no transactions is omitted.
func WeekendVsWeekday(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetWeekendVsWeekday, "Type", "Amount")
	if ledger.IsEmpty() {
		return table
	}

	var weekend, weekday group
	for _, r := range ledger.Records {
		if dateutils.IsWeekend(r.Date) {
			weekend.add(r)
		} else {
			weekday.add(r)
		}
	}

	for _, c := range []struct {
		label string
		g     group
	}{{"Weekend", weekend}, {"Weekday", weekday}} {
		if c.g.count == 0 {
			continue
		}
		mean := safeDiv(c.g.sum, decimal.NewFromInt(int64(c.g.count)))
		table.Append(c.label, models.FormatMoney(mean))
	}
	return table
}
