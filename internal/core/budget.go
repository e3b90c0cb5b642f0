package core

import "github.com/shopspring/decimal"

const (
	BudgetOK   BudgetStatus = "ok"
	BudgetNear BudgetStatus = "near"
	BudgetOver BudgetStatus = "over"
)

type BudgetStatus string

// nearBudgetNum/nearBudgetDen encode the 90% advisory threshold for the
// near-budget warning. Comparing spent*10 >= budget*9 avoids dividing by a
// zero ceiling.
var (
	nearBudgetNum = decimal.NewFromInt(10)
	nearBudgetDen = decimal.NewFromInt(9)
)

// Status classifies the category against its ceiling. A category is over
// budget when spent strictly exceeds the ceiling, so a zero ceiling with
// any spend is over and a zero ceiling with no spend is ok. The near
// threshold only applies to positive ceilings; the ratio is undefined at
// zero and is never evaluated.
func (c BudgetCategory) Status() BudgetStatus {
	if c.Spent.GreaterThan(c.Budget) {
		return BudgetOver
	}
	if c.Budget.IsPositive() && c.Spent.Mul(nearBudgetNum).GreaterThanOrEqual(c.Budget.Mul(nearBudgetDen)) {
		return BudgetNear
	}
	return BudgetOK
}

// Remaining returns the ceiling minus spend; negative when over budget.
func (c BudgetCategory) Remaining() decimal.Decimal {
	return c.Budget.Sub(c.Spent)
}
