package aggregate

import (
	"strconv"

	"fjacquet/travel-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// SpendSummary measures the ledger against the trip budget in a single row.
//
// Days_Remaining is how many more days the remaining budget lasts at the
// current daily average, truncated toward zero. It goes negative once the
// budget is overspent.
func SpendSummary(ledger models.Ledger, opts Options) models.Table {
	table := models.NewTable(SheetSpendSummary,
		"Total_Spent", "Total_Days", "Daily_Avg", "Budget", "Remaining", "Percent_Used", "Days_Remaining")
	if ledger.IsEmpty() {
		return table
	}

	_, days := groupBy(ledger.Records, byDate)
	total := ledger.Total()
	dailyAvg := safeDiv(total, decimal.NewFromInt(int64(len(days))))
	remaining := opts.TotalBudget.Sub(total)

	used := safeDiv(total, opts.TotalBudget)
	if used.GreaterThan(decimal.NewFromInt(1)) {
		used = decimal.NewFromInt(1)
	}

	table.Append(
		models.FormatMoney(total),
		strconv.Itoa(len(days)),
		models.FormatMoney(dailyAvg),
		models.FormatMoney(opts.TotalBudget),
		models.FormatMoney(remaining),
		models.FormatRatio(used),
		strconv.FormatInt(safeDiv(remaining, dailyAvg).IntPart(), 10),
	)
	return table
}
