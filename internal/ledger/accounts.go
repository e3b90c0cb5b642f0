package ledger

import (
	"tally/internal/core"

	"github.com/shopspring/decimal"
)

// AccountLedger holds the named accounts. Balances are derived by a full
// re-scan of the transaction collection rather than maintained
// incrementally, so they can never drift from the source of truth.
type AccountLedger struct {
	accounts []core.Account
}

func NewAccountLedger() *AccountLedger {
	return &AccountLedger{accounts: []core.Account{}}
}

// Add appends the account with its balance forced to zero, whatever the
// spec carried. The first recompute fills it in.
func (l *AccountLedger) Add(spec core.Account) {
	spec.Balance = decimal.Zero
	l.accounts = append(l.accounts, spec)
}

func (l *AccountLedger) Get(id string) (core.Account, bool) {
	for _, a := range l.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}

func (l *AccountLedger) Contains(id string) bool {
	_, ok := l.Get(id)
	return ok
}

// Update merges a partial update into the account with the given id.
func (l *AccountLedger) Update(id string, patch core.AccountPatch) bool {
	for i := range l.accounts {
		if l.accounts[i].ID == id {
			l.accounts[i] = patch.ApplyTo(l.accounts[i])
			return true
		}
	}
	return false
}

// Delete removes the account. The transaction cascade is the Engine's
// responsibility, not the ledger's.
func (l *AccountLedger) Delete(id string) bool {
	for i, a := range l.accounts {
		if a.ID == id {
			l.accounts = append(l.accounts[:i], l.accounts[i+1:]...)
			return true
		}
	}
	return false
}

func (l *AccountLedger) All() []core.Account {
	out := make([]core.Account, len(l.accounts))
	copy(out, l.accounts)
	return out
}

func (l *AccountLedger) Replace(accounts []core.Account) {
	l.accounts = make([]core.Account, len(accounts))
	copy(l.accounts, accounts)
}

// RecomputeBalances resets every known account to zero and sums amounts
// per matching account reference. Transactions pointing at unknown
// accounts are ignored; they never create phantom accounts. Decimal
// addition is exact, so the result is independent of transaction order.
func (l *AccountLedger) RecomputeBalances(transactions []core.Transaction) {
	totals := make(map[string]decimal.Decimal, len(l.accounts))
	for _, a := range l.accounts {
		totals[a.ID] = decimal.Zero
	}
	for _, t := range transactions {
		if running, known := totals[t.Account]; known {
			totals[t.Account] = running.Add(t.Amount)
		}
	}
	for i := range l.accounts {
		l.accounts[i].Balance = totals[l.accounts[i].ID]
	}
}
