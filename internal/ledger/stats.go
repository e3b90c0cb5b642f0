package ledger

import "tally/internal/core"

// ComputeStatistics derives the overall, per-month, and per-category
// totals in a single pass over the transaction collection. It is a pure
// function: recomputing on unchanged input yields identical output.
//
// Positive amounts accumulate as income, negative amounts as absolute
// expense. Zero amounts touch neither total (they only matter for account
// balances). Month buckets are keyed by the fixed-width YYYY-MM form of
// the date; category buckets are keyed by the raw category string whether
// or not a budget category with that id exists.
func ComputeStatistics(transactions []core.Transaction) core.Statistics {
	stats := core.EmptyStatistics()

	for _, t := range transactions {
		monthKey := t.Date.MonthKey()
		monthly := stats.MonthlyStats[monthKey]
		byCategory := stats.CategoryStats[t.Category]

		switch {
		case t.Amount.IsPositive():
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
			monthly.Income = monthly.Income.Add(t.Amount)
			byCategory.Income = byCategory.Income.Add(t.Amount)
		case t.Amount.IsNegative():
			expense := t.Amount.Abs()
			stats.TotalExpense = stats.TotalExpense.Add(expense)
			monthly.Expense = monthly.Expense.Add(expense)
			byCategory.Expense = byCategory.Expense.Add(expense)
		}

		monthly.Balance = monthly.Income.Sub(monthly.Expense)
		stats.MonthlyStats[monthKey] = monthly
		stats.CategoryStats[t.Category] = byCategory
	}

	stats.TotalBalance = stats.TotalIncome.Sub(stats.TotalExpense)
	return stats
}
