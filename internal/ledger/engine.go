package ledger

import (
	"fmt"
	"strings"

	"tally/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// TransferCategory marks both legs of a transfer.
	TransferCategory = "transfer"
	// TransferTag is carried by both legs; the pairing tag
	// ("transfer:<uuid>") links the two.
	TransferTag       = "transfer"
	transferTagPrefix = "transfer:"

	// DefaultTransferDescription fills in when a transfer gives none.
	DefaultTransferDescription = "Account transfer"
)

// Engine owns the transaction store and its derived views and keeps them
// consistent: every command that mutates the store synchronously
// recomputes account balances, budget spend, and statistics, in that
// order, before returning. There is no staleness window; a read after any
// command observes fully consistent derived state.
//
// The engine is deliberately not safe for concurrent use. It assumes a
// single logical writer; callers that face concurrency (the HTTP service
// does) must serialize access around it.
type Engine struct {
	store    *Store
	accounts *AccountLedger
	budgets  *BudgetTracker
	stats    core.Statistics

	filter         Filter
	sort           Sort
	page           Page
	currentAccount string

	revision uint64
}

// Snapshot is the full serializable state: the authoritative collections
// plus view configuration. Derived fields (balances, spend, statistics)
// travel along for inspection but are recomputed on restore, never
// trusted.
type Snapshot struct {
	Transactions   []core.Transaction    `json:"transactions"`
	Accounts       []core.Account        `json:"accounts"`
	Budgets        []core.BudgetCategory `json:"budgets"`
	Filter         Filter                `json:"filter"`
	Sort           Sort                  `json:"sort"`
	Page           Page                  `json:"pagination"`
	CurrentAccount string                `json:"currentAccount"`
}

func defaultBudgets() []core.BudgetCategory {
	mk := func(id, name string) core.BudgetCategory {
		return core.BudgetCategory{ID: id, Name: name, Budget: decimal.Zero, Spent: decimal.Zero}
	}
	return []core.BudgetCategory{
		mk("food", "Food"),
		mk("transport", "Transport"),
		mk("shopping", "Shopping"),
		mk("entertainment", "Entertainment"),
		mk("housing", "Housing"),
	}
}

func defaultAccounts() []core.Account {
	mk := func(id, name string, typ core.AccountType, icon string) core.Account {
		return core.Account{ID: id, Name: name, Type: typ, Icon: icon, Balance: decimal.Zero}
	}
	return []core.Account{
		mk("bank", "Bank Card", core.AccountBank, "🏦"),
		mk("cash", "Cash", core.AccountCash, "💵"),
		mk("alipay", "Alipay", core.AccountAlipay, "💰"),
		mk("wechat", "WeChat", core.AccountWechat, "💳"),
	}
}

// NewEngine returns an engine seeded with the default accounts and budget
// categories, with all derived state computed.
func NewEngine() *Engine {
	e := &Engine{
		store:    NewStore(),
		accounts: NewAccountLedger(),
		budgets:  NewBudgetTracker(),
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.store.Replace(nil)
	e.accounts.Replace(defaultAccounts())
	e.budgets.Replace(defaultBudgets())
	e.filter = DefaultFilter()
	e.sort = DefaultSort()
	e.page = DefaultPage()
	e.currentAccount = AllAccounts
	e.sync()
}

// sync recomputes all derived state in dependency order. Every mutating
// command calls it exactly once before returning.
func (e *Engine) sync() {
	transactions := e.store.All()
	e.accounts.RecomputeBalances(transactions)
	e.budgets.RecomputeSpent(transactions)
	e.stats = ComputeStatistics(transactions)
	e.revision++
}

// Reset drops everything and returns to the seeded initial state.
func (e *Engine) Reset() {
	e.reset()
}

// Revision increments on every state change, data and view configuration
// alike; it identifies a consistent observable state for cache keys and
// change events. A cached read keyed by revision can never survive a
// mutation.
func (e *Engine) Revision() uint64 {
	return e.revision
}

// prepare validates and normalizes a transaction for insertion, assigning
// an id when absent.
func (e *Engine) prepare(t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if e.store.Contains(t.ID) {
		return core.Transaction{}, &core.ValidationError{Field: "id", Reason: "already in use"}
	}
	t.Tags = core.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// AddTransaction validates and appends a transaction, then recomputes all
// derived state. On error the ledger is left exactly as it was.
func (e *Engine) AddTransaction(t core.Transaction) (core.Transaction, error) {
	prepared, err := e.prepare(t)
	if err != nil {
		return core.Transaction{}, err
	}
	e.store.Add(prepared)
	e.sync()
	return prepared, nil
}

// ImportTransactions adds a batch atomically: if any record fails
// validation the whole batch is rejected and nothing changes. Derived
// state is recomputed once at the end.
func (e *Engine) ImportTransactions(batch []core.Transaction) (int, error) {
	prepared := make([]core.Transaction, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for i, t := range batch {
		p, err := e.prepare(t)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return 0, fmt.Errorf("record %d: %w", i, &core.ValidationError{Field: "id", Reason: "duplicated in batch"})
		}
		seen[p.ID] = struct{}{}
		prepared = append(prepared, p)
	}
	for _, p := range prepared {
		e.store.Add(p)
	}
	e.sync()
	return len(prepared), nil
}

// UpdateTransaction merges a partial update into an existing record. An
// unknown id surfaces as NotFoundError rather than silently doing
// nothing; a merge that would produce an invalid record is rejected with
// the store untouched.
func (e *Engine) UpdateTransaction(id string, patch core.TransactionPatch) (core.Transaction, error) {
	existing, ok := e.store.Get(id)
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Kind: "transaction", ID: id}
	}
	merged := patch.ApplyTo(existing)
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}
	e.store.Put(merged)
	e.sync()
	return merged, nil
}

// DeleteTransaction removes a record, reporting whether anything changed.
// An unknown id is a silent no-op: no recompute, no revision change, and
// callers can skip persistence for it.
func (e *Engine) DeleteTransaction(id string) bool {
	if !e.store.Delete(id) {
		return false
	}
	e.sync()
	return true
}

// DeleteTransactions removes a batch of records by id, recomputing once.
// Unknown ids are skipped. Returns the number actually removed.
func (e *Engine) DeleteTransactions(ids []string) int {
	removed := 0
	for _, id := range ids {
		if e.store.Delete(id) {
			removed++
		}
	}
	if removed > 0 {
		e.sync()
	}
	return removed
}

// AddAccount registers a new account. Any balance in the spec is ignored;
// accounts always start at zero and get their balance from recompute.
func (e *Engine) AddAccount(spec core.Account) (core.Account, error) {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	} else if e.accounts.Contains(spec.ID) {
		return core.Account{}, &core.ValidationError{Field: "id", Reason: "already in use"}
	}
	if err := spec.Validate(); err != nil {
		return core.Account{}, err
	}
	e.accounts.Add(spec)
	e.sync()
	added, _ := e.accounts.Get(spec.ID)
	return added, nil
}

// UpdateAccount merges a partial update; balance is not patchable.
func (e *Engine) UpdateAccount(id string, patch core.AccountPatch) (core.Account, error) {
	existing, ok := e.accounts.Get(id)
	if !ok {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	merged := patch.ApplyTo(existing)
	if err := merged.Validate(); err != nil {
		return core.Account{}, err
	}
	e.accounts.Update(id, patch)
	e.sync()
	updated, _ := e.accounts.Get(id)
	return updated, nil
}

// DeleteAccount removes the account and cascades to every transaction
// referencing it, reporting whether anything changed. An unknown id is a
// silent no-op. A current-account selection pointing at the deleted
// account falls back to all accounts.
func (e *Engine) DeleteAccount(id string) bool {
	if !e.accounts.Delete(id) {
		return false
	}
	e.store.DeleteByAccount(id)
	if e.currentAccount == id {
		e.currentAccount = AllAccounts
	}
	if e.filter.Account == id {
		e.filter.Account = AllAccounts
	}
	e.sync()
	return true
}

// UpdateBudget sets the ceiling for a budget category.
func (e *Engine) UpdateBudget(id string, ceiling decimal.Decimal) (core.BudgetCategory, error) {
	if ceiling.IsNegative() {
		return core.BudgetCategory{}, &core.ValidationError{Field: "budget", Reason: "must not be negative"}
	}
	if !e.budgets.UpdateBudget(id, ceiling) {
		return core.BudgetCategory{}, &core.NotFoundError{Kind: "budget", ID: id}
	}
	e.sync()
	updated, _ := e.budgets.Get(id)
	return updated, nil
}

// Transfer moves amount between two accounts as two linked transactions:
// a negative leg on the source and a positive leg on the destination,
// sharing a correlation tag. The pair is added atomically with a single
// recompute; income and expense totals cancel while both balances shift.
func (e *Engine) Transfer(fromAccountID, toAccountID string, amount decimal.Decimal, description string) ([]core.Transaction, error) {
	if fromAccountID == toAccountID {
		return nil, &core.ValidationError{Field: "toAccount", Reason: "must differ from source account"}
	}
	if !amount.IsPositive() {
		return nil, &core.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultTransferDescription
	}

	pairTag := transferTagPrefix + uuid.NewString()
	date := core.Today()
	legs := []core.Transaction{
		{
			ID:          uuid.NewString(),
			Date:        date,
			Description: description,
			Category:    TransferCategory,
			Amount:      amount.Neg(),
			Account:     fromAccountID,
			Tags:        []string{TransferTag, pairTag},
		},
		{
			ID:          uuid.NewString(),
			Date:        date,
			Description: description,
			Category:    TransferCategory,
			Amount:      amount,
			Account:     toAccountID,
			Tags:        []string{TransferTag, pairTag},
		},
	}

	for i, leg := range legs {
		prepared, err := e.prepare(leg)
		if err != nil {
			return nil, err
		}
		legs[i] = prepared
	}
	for _, leg := range legs {
		e.store.Add(leg)
	}
	e.sync()
	return legs, nil
}

// View-configuration commands change what a query observes without
// touching transaction data, so they bump the revision directly instead
// of recomputing derived state. Query pages cached under the previous
// configuration become unreachable the same way a data mutation makes
// them unreachable.

// SetFilter replaces the active filter and resets pagination to the first
// page, since the old page number is meaningless against a new result
// set.
func (e *Engine) SetFilter(f Filter) {
	e.filter = f.clone()
	e.page.Number = 1
	e.revision++
}

// SetSort replaces the active sort configuration.
func (e *Engine) SetSort(s Sort) error {
	if !s.Field.Valid() {
		return &core.ValidationError{Field: "field", Reason: "unknown sort field"}
	}
	if s.Direction != SortAsc && s.Direction != SortDesc {
		return &core.ValidationError{Field: "direction", Reason: "must be asc or desc"}
	}
	e.sort = s
	e.revision++
	return nil
}

// ToggleSort selects a sort field; selecting the already-active field
// flips the direction, otherwise sorting starts ascending.
func (e *Engine) ToggleSort(field SortField) error {
	if !field.Valid() {
		return &core.ValidationError{Field: "field", Reason: "unknown sort field"}
	}
	direction := SortAsc
	if e.sort.Field == field && e.sort.Direction == SortAsc {
		direction = SortDesc
	}
	e.sort = Sort{Field: field, Direction: direction}
	e.revision++
	return nil
}

func (e *Engine) SetPage(number int) error {
	if number < 1 {
		return &core.ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	e.page.Number = number
	e.revision++
	return nil
}

func (e *Engine) SetPageSize(size int) error {
	if size < 1 {
		return &core.ValidationError{Field: "pageSize", Reason: "must be at least 1"}
	}
	e.page.Size = size
	e.page.Number = 1
	e.revision++
	return nil
}

// SetCurrentAccount selects the account in focus for account-centric
// views; "all" selects every account.
func (e *Engine) SetCurrentAccount(id string) error {
	if id != AllAccounts && !e.accounts.Contains(id) {
		return &core.NotFoundError{Kind: "account", ID: id}
	}
	e.currentAccount = id
	e.revision++
	return nil
}

// Read-side snapshot interface. All returned values are copies; mutating
// them cannot touch engine state.

func (e *Engine) Transactions() []core.Transaction { return e.store.All() }
func (e *Engine) TransactionCount() int            { return e.store.Len() }
func (e *Engine) Accounts() []core.Account         { return e.accounts.All() }
func (e *Engine) Budgets() []core.BudgetCategory   { return e.budgets.All() }
func (e *Engine) Filter() Filter                   { return e.filter.clone() }
func (e *Engine) Sort() Sort                       { return e.sort }
func (e *Engine) Page() Page                       { return e.page }
func (e *Engine) CurrentAccount() string           { return e.currentAccount }

func (e *Engine) Transaction(id string) (core.Transaction, bool) { return e.store.Get(id) }
func (e *Engine) Account(id string) (core.Account, bool)         { return e.accounts.Get(id) }
func (e *Engine) Budget(id string) (core.BudgetCategory, bool)   { return e.budgets.Get(id) }

// Statistics returns the current derived totals with copied maps.
func (e *Engine) Statistics() core.Statistics {
	out := e.stats
	out.MonthlyStats = make(map[string]core.MonthlyStat, len(e.stats.MonthlyStats))
	for k, v := range e.stats.MonthlyStats {
		out.MonthlyStats[k] = v
	}
	out.CategoryStats = make(map[string]core.CategoryStat, len(e.stats.CategoryStats))
	for k, v := range e.stats.CategoryStats {
		out.CategoryStats[k] = v
	}
	return out
}

// Query runs the view with the active filter, sort, and pagination.
func (e *Engine) Query() QueryResult {
	return Query(e.store.All(), e.filter, e.sort, e.page)
}

// QueryWith runs an ad-hoc query without touching the stored view
// configuration.
func (e *Engine) QueryWith(f Filter, s Sort, p Page) QueryResult {
	return Query(e.store.All(), f, s, p)
}

// Snapshot captures the full state for persistence.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Transactions:   e.store.All(),
		Accounts:       e.accounts.All(),
		Budgets:        e.budgets.All(),
		Filter:         e.filter.clone(),
		Sort:           e.sort,
		Page:           e.page,
		CurrentAccount: e.currentAccount,
	}
}

// RestoreSnapshot replaces all state with the snapshot's contents and
// recomputes every derived view, so a snapshot taken before any amount of
// drift restores to a fully consistent ledger.
func (e *Engine) RestoreSnapshot(snap Snapshot) {
	e.store.Replace(snap.Transactions)
	e.accounts.Replace(snap.Accounts)
	e.budgets.Replace(snap.Budgets)

	e.filter = snap.Filter.clone()
	if e.filter.Type == "" {
		e.filter.Type = TypeAll
	}
	e.sort = snap.Sort
	if !e.sort.Field.Valid() {
		e.sort = DefaultSort()
	}
	e.page = snap.Page
	if e.page.Number < 1 {
		e.page.Number = 1
	}
	if e.page.Size < 1 {
		e.page.Size = DefaultPageSize
	}
	e.currentAccount = snap.CurrentAccount
	if e.currentAccount == "" {
		e.currentAccount = AllAccounts
	}

	e.sync()
}
