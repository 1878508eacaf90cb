package aggregate

import (
	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/models"

	"github.com/shopspring/decimal"
)

func byDate(r models.Record) string { return dateutils.ToISODate(r.Date) }

// CumulativeSpend is the global burn curve: the total of each date with spend
// and the running sum up to it, in calendar order.
func CumulativeSpend(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetCumulativeSpend, "Date", "Amount", "Cumulative_Total")
	if ledger.IsEmpty() {
		return table
	}

	dates, perDate := groupBy(ledger.Records, byDate)
	running := decimal.Zero
	for _, d := range dates {
		amount := perDate[d].sum
		running = running.Add(amount)
		table.Append(d, models.FormatMoney(amount), models.FormatMoney(running))
	}
	return table
}

// WeeklyExpenditure sums spend per week, weeks starting on Monday. Every week
// between the first and the last is listed, quiet weeks with 0.00.
// Week_Start_Date is the Monday opening the week, not the one closing it.
func WeeklyExpenditure(ledger models.Ledger, _ Options) models.Table {
	table := models.NewTable(SheetWeeklySpend, "Week_Start_Date", "Total_Spend")
	if ledger.IsEmpty() {
		return table
	}

	weeks, groups := groupBy(ledger.Records, func(r models.Record) string {
		return dateutils.ToISODate(dateutils.StartOfWeek(r.Date))
	})

	first, _, _ := dateutils.ParseDate(weeks[0])
	last, _, _ := dateutils.ParseDate(weeks[len(weeks)-1])
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		key := dateutils.ToISODate(week)
		sum := decimal.Zero
		if g, ok := groups[key]; ok {
			sum = g.sum
		}
		table.Append(key, models.FormatMoney(sum))
	}
	return table
}
