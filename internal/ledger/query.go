package ledger

import (
	"sort"
	"strings"

	"tally/internal/core"

	"github.com/shopspring/decimal"
)

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"
	SortByCategory    SortField = "category"
	SortByAccount     SortField = "account"

	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"

	TypeAll     = "all"
	TypeIncome  = "income"
	TypeExpense = "expense"

	// AllAccounts is the account filter value matching every account.
	AllAccounts = "all"

	DefaultPageSize = 10
)

type (
	SortField     string
	SortDirection string

	// DateRange is an inclusive from/to window.
	DateRange struct {
		From core.Date `json:"from"`
		To   core.Date `json:"to"`
	}

	// AdvancedSearch narrows the result further. Its sub-fields are ANDed
	// with each other, but Tags and Categories each match when ANY of
	// their values matches the transaction.
	AdvancedSearch struct {
		AmountMin   *decimal.Decimal `json:"amountMin,omitempty"`
		AmountMax   *decimal.Decimal `json:"amountMax,omitempty"`
		Description string           `json:"description,omitempty"`
		Tags        []string         `json:"tags,omitempty"`
		Categories  []string         `json:"categories,omitempty"`
	}

	// Filter selects transactions. Every provided dimension is combined
	// with logical AND; zero values mean "no constraint".
	Filter struct {
		Type      string          `json:"type,omitempty"` // income | expense | all
		Account   string          `json:"account,omitempty"`
		DateRange *DateRange      `json:"dateRange,omitempty"`
		Search    string          `json:"search,omitempty"`
		Advanced  *AdvancedSearch `json:"advancedSearch,omitempty"`
	}

	Sort struct {
		Field     SortField     `json:"field"`
		Direction SortDirection `json:"direction"`
	}

	Page struct {
		Number int `json:"page"`
		Size   int `json:"pageSize"`
	}

	// QueryResult is one page of the filtered-and-sorted sequence plus the
	// total match count for page-count arithmetic.
	QueryResult struct {
		Transactions []core.Transaction `json:"transactions"`
		Total        int                `json:"total"`
		Page         int                `json:"page"`
		PageSize     int                `json:"pageSize"`
	}
)

// DefaultFilter matches everything.
func DefaultFilter() Filter {
	return Filter{Type: TypeAll}
}

// clone deep-copies the pointer-typed dimensions so a filter can be
// handed across an ownership boundary without sharing state.
func (f Filter) clone() Filter {
	out := f
	if f.DateRange != nil {
		dr := *f.DateRange
		out.DateRange = &dr
	}
	if f.Advanced != nil {
		a := *f.Advanced
		if a.AmountMin != nil {
			min := *a.AmountMin
			a.AmountMin = &min
		}
		if a.AmountMax != nil {
			max := *a.AmountMax
			a.AmountMax = &max
		}
		a.Tags = append([]string(nil), a.Tags...)
		a.Categories = append([]string(nil), a.Categories...)
		out.Advanced = &a
	}
	return out
}

// DefaultSort is newest-first by date.
func DefaultSort() Sort {
	return Sort{Field: SortByDate, Direction: SortDesc}
}

func DefaultPage() Page {
	return Page{Number: 1, Size: DefaultPageSize}
}

func (f SortField) Valid() bool {
	switch f {
	case SortByDate, SortByAmount, SortByDescription, SortByCategory, SortByAccount:
		return true
	}
	return false
}

// Matches applies every configured dimension of the filter.
func (f Filter) Matches(t core.Transaction) bool {
	switch f.Type {
	case TypeIncome:
		if !t.Amount.IsPositive() {
			return false
		}
	case TypeExpense:
		if !t.Amount.IsNegative() {
			return false
		}
	}

	if f.Account != "" && f.Account != AllAccounts && t.Account != f.Account {
		return false
	}

	// A zero From or To leaves that end of the range open, so a filter
	// restored or set with only one bound behaves as a half-open window
	// instead of matching nothing.
	if f.DateRange != nil {
		if !f.DateRange.From.IsZero() && t.Date.Before(f.DateRange.From.Time) {
			return false
		}
		if !f.DateRange.To.IsZero() && t.Date.After(f.DateRange.To.Time) {
			return false
		}
	}

	if f.Search != "" && !matchesSearch(t, f.Search) {
		return false
	}

	if f.Advanced != nil && !f.Advanced.matches(t) {
		return false
	}

	return true
}

// matchesSearch is the quick search: a case-insensitive substring match
// against description, category, and tags, matching if ANY of the three
// hits.
func matchesSearch(t core.Transaction, search string) bool {
	term := strings.ToLower(search)
	if strings.Contains(strings.ToLower(t.Description), term) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Category), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func (a AdvancedSearch) matches(t core.Transaction) bool {
	if a.AmountMin != nil && t.Amount.LessThan(*a.AmountMin) {
		return false
	}
	if a.AmountMax != nil && t.Amount.GreaterThan(*a.AmountMax) {
		return false
	}
	if a.Description != "" &&
		!strings.Contains(strings.ToLower(t.Description), strings.ToLower(a.Description)) {
		return false
	}
	if len(a.Tags) > 0 && !anyTagMatch(t, a.Tags) {
		return false
	}
	if len(a.Categories) > 0 && !containsString(a.Categories, t.Category) {
		return false
	}
	return true
}

func anyTagMatch(t core.Transaction, wanted []string) bool {
	for _, w := range wanted {
		if t.HasTag(w) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// compare orders a before b for ascending direction; ties return 0 and
// are left to the stable sort, keeping output deterministic across calls.
func (s Sort) compare(a, b core.Transaction) int {
	var cmp int
	switch s.Field {
	case SortByAmount:
		cmp = a.Amount.Cmp(b.Amount)
	case SortByDescription:
		cmp = strings.Compare(a.Description, b.Description)
	case SortByCategory:
		cmp = strings.Compare(a.Category, b.Category)
	case SortByAccount:
		cmp = strings.Compare(a.Account, b.Account)
	default: // date
		switch {
		case a.Date.Before(b.Date.Time):
			cmp = -1
		case a.Date.After(b.Date.Time):
			cmp = 1
		}
	}
	if s.Direction == SortDesc {
		cmp = -cmp
	}
	return cmp
}

// Query filters, sorts, and paginates the given transactions. It is pure:
// the input slice is never mutated and identical inputs always produce
// identical output.
func Query(transactions []core.Transaction, f Filter, s Sort, p Page) QueryResult {
	filtered := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if f.Matches(t) {
			filtered = append(filtered, t)
		}
	}

	if s.Field != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			return s.compare(filtered[i], filtered[j]) < 0
		})
	}

	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	start := (p.Number - 1) * p.Size
	end := start + p.Size
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	page := make([]core.Transaction, end-start)
	copy(page, filtered[start:end])

	return QueryResult{
		Transactions: page,
		Total:        len(filtered),
		Page:         p.Number,
		PageSize:     p.Size,
	}
}
