package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AccountBank   AccountType = "bank"
	AccountCash   AccountType = "cash"
	AccountAlipay AccountType = "alipay"
	AccountWechat AccountType = "wechat"
	AccountOther  AccountType = "other"
)

// MaxDescriptionLen bounds free-text descriptions on transactions.
const MaxDescriptionLen = 200

type (
	AccountType string

	// Transaction is a single ledger entry. The sign of Amount is the sole
	// discriminator between income (positive) and expense (negative); zero
	// amounts count toward balance but neither total. Category and Account
	// are weak references: any string is legal, and aggregation silently
	// skips references that resolve to nothing.
	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Account     string          `json:"account"`
		Tags        []string        `json:"tags"`
	}

	// Account is a named money holder. Balance is derived from the
	// transaction collection and never set directly.
	Account struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Type    AccountType     `json:"type"`
		Icon    string          `json:"icon,omitempty"`
		Balance decimal.Decimal `json:"balance"`
	}

	// BudgetCategory pairs a user-set spending ceiling with a derived
	// spent total accumulated from negative transactions.
	BudgetCategory struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
		Spent  decimal.Decimal `json:"spent"`
	}
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountCash, AccountAlipay, AccountWechat, AccountOther:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if len(t.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if strings.TrimSpace(t.Account) == "" {
		return &ValidationError{Field: "account", Reason: "required"}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !a.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be one of bank, cash, alipay, wechat, other"}
	}
	return nil
}

// NormalizeTags trims whitespace, drops empties, and deduplicates while
// keeping first-seen order. Tag order carries no meaning, but a stable
// representation keeps snapshots deterministic.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// HasTag reports whether the transaction carries the given tag.
func (t Transaction) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; Tags is the only reference field.
func (t Transaction) Clone() Transaction {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	return out
}

// TransactionPatch carries a partial update; nil fields are left unchanged.
// Tags, when present, replaces the whole tag set.
type TransactionPatch struct {
	Date        *Date            `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Account     *string          `json:"account,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
}

// ApplyTo merges the patch into a copy of t. The ID is immutable.
func (p TransactionPatch) ApplyTo(t Transaction) Transaction {
	out := t.Clone()
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Account != nil {
		out.Account = *p.Account
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	return out
}

// AccountPatch carries a partial account update. Balance is derived state
// and deliberately not patchable.
type AccountPatch struct {
	Name *string      `json:"name,omitempty"`
	Type *AccountType `json:"type,omitempty"`
	Icon *string      `json:"icon,omitempty"`
}

func (p AccountPatch) ApplyTo(a Account) Account {
	out := a
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Icon != nil {
		out.Icon = *p.Icon
	}
	return out
}
