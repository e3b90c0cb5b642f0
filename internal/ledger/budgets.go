package ledger

import (
	"tally/internal/core"

	"github.com/shopspring/decimal"
)

// BudgetTracker holds the budget categories. The ceiling is the only
// user-settable field; spent totals are derived by full recompute.
type BudgetTracker struct {
	categories []core.BudgetCategory
}

func NewBudgetTracker() *BudgetTracker {
	return &BudgetTracker{categories: []core.BudgetCategory{}}
}

func (b *BudgetTracker) Get(id string) (core.BudgetCategory, bool) {
	for _, c := range b.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.BudgetCategory{}, false
}

// UpdateBudget sets the ceiling for the given category.
func (b *BudgetTracker) UpdateBudget(id string, ceiling decimal.Decimal) bool {
	for i := range b.categories {
		if b.categories[i].ID == id {
			b.categories[i].Budget = ceiling
			return true
		}
	}
	return false
}

func (b *BudgetTracker) All() []core.BudgetCategory {
	out := make([]core.BudgetCategory, len(b.categories))
	copy(out, b.categories)
	return out
}

func (b *BudgetTracker) Replace(categories []core.BudgetCategory) {
	b.categories = make([]core.BudgetCategory, len(categories))
	copy(b.categories, categories)
}

// RecomputeSpent sums abs(amount) of negative transactions per known
// category. Income never contributes, categories referenced by no
// transaction end at zero, and transactions with unknown categories are
// ignored.
func (b *BudgetTracker) RecomputeSpent(transactions []core.Transaction) {
	spent := make(map[string]decimal.Decimal, len(b.categories))
	for _, c := range b.categories {
		spent[c.ID] = decimal.Zero
	}
	for _, t := range transactions {
		if !t.Amount.IsNegative() {
			continue
		}
		if running, known := spent[t.Category]; known {
			spent[t.Category] = running.Add(t.Amount.Abs())
		}
	}
	for i := range b.categories {
		b.categories[i].Spent = spent[b.categories[i].ID]
	}
}
