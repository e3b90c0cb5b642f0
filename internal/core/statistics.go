package core

import "github.com/shopspring/decimal"

// MonthlyStat is the income/expense/balance bucket for one YYYY-MM key.
type MonthlyStat struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryStat accumulates income and expense per category key, whether or
// not that key exists as a budget category.
type CategoryStat struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Statistics is fully derived state, recomputed wholesale from the
// transaction collection. Expenses are reported as absolute values.
type Statistics struct {
	TotalIncome   decimal.Decimal         `json:"totalIncome"`
	TotalExpense  decimal.Decimal         `json:"totalExpense"`
	TotalBalance  decimal.Decimal         `json:"totalBalance"`
	MonthlyStats  map[string]MonthlyStat  `json:"monthlyStats"`
	CategoryStats map[string]CategoryStat `json:"categoryStats"`
}

// EmptyStatistics returns zeroed statistics with allocated maps.
func EmptyStatistics() Statistics {
	return Statistics{
		TotalIncome:   decimal.Zero,
		TotalExpense:  decimal.Zero,
		TotalBalance:  decimal.Zero,
		MonthlyStats:  map[string]MonthlyStat{},
		CategoryStats: map[string]CategoryStat{},
	}
}
