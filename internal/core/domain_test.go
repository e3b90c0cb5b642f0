package core

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		ID:          "t1",
		Date:        NewDate(2024, 1, 14),
		Description: "groceries",
		Category:    "food",
		Amount:      decimal.NewFromInt(-50),
		Account:     "bank",
		Tags:        []string{"weekly"},
	}
}

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Transaction)
		wantField string
	}{
		{
			name:   "valid transaction",
			mutate: func(*Transaction) {},
		},
		{
			name:   "zero amount is legal",
			mutate: func(tr *Transaction) { tr.Amount = decimal.Zero },
		},
		{
			name:      "missing date",
			mutate:    func(tr *Transaction) { tr.Date = Date{} },
			wantField: "date",
		},
		{
			name:      "empty description",
			mutate:    func(tr *Transaction) { tr.Description = "   " },
			wantField: "description",
		},
		{
			name:      "description too long",
			mutate:    func(tr *Transaction) { tr.Description = strings.Repeat("x", 201) },
			wantField: "description",
		},
		{
			name:      "empty category",
			mutate:    func(tr *Transaction) { tr.Category = "" },
			wantField: "category",
		},
		{
			name:      "empty account",
			mutate:    func(tr *Transaction) { tr.Account = "" },
			wantField: "account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTransaction()
			tt.mutate(&tr)

			err := tr.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !IsValidation(err) {
				t.Errorf("Validate() error is not a ValidationError: %v", err)
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() error has type %T, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Validate() error field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
	}{
		{
			name:    "valid bank account",
			account: Account{ID: "a1", Name: "Main", Type: AccountBank},
		},
		{
			name:    "missing name",
			account: Account{ID: "a1", Type: AccountCash},
			wantErr: true,
		},
		{
			name:    "unknown type",
			account: Account{ID: "a1", Name: "Main", Type: "credit"},
			wantErr: true,
		},
		{
			name:    "empty type",
			account: Account{ID: "a1", Name: "Main"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil input", in: nil, want: []string{}},
		{name: "duplicates removed", in: []string{"a", "b", "a"}, want: []string{"a", "b"}},
		{name: "whitespace trimmed", in: []string{" a ", ""}, want: []string{"a"}},
		{name: "order preserved", in: []string{"z", "a", "z"}, want: []string{"z", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransactionPatch_ApplyTo(t *testing.T) {
	original := validTransaction()

	desc := "rent"
	amount := decimal.NewFromInt(-1200)
	tags := []string{"monthly", "monthly", " home "}
	patch := TransactionPatch{
		Description: &desc,
		Amount:      &amount,
		Tags:        &tags,
	}

	merged := patch.ApplyTo(original)

	if merged.ID != original.ID {
		t.Errorf("ApplyTo() changed id to %q", merged.ID)
	}
	if merged.Description != "rent" {
		t.Errorf("ApplyTo() description = %q, want %q", merged.Description, "rent")
	}
	if !merged.Amount.Equal(amount) {
		t.Errorf("ApplyTo() amount = %s, want %s", merged.Amount, amount)
	}
	if want := []string{"monthly", "home"}; !reflect.DeepEqual(merged.Tags, want) {
		t.Errorf("ApplyTo() tags = %v, want %v", merged.Tags, want)
	}
	// Untouched fields survive.
	if merged.Category != original.Category || !merged.Date.Equal(original.Date.Time) {
		t.Error("ApplyTo() modified fields the patch did not carry")
	}
	// And the original is untouched.
	if original.Description != "groceries" {
		t.Error("ApplyTo() mutated the original transaction")
	}
}

func TestBudgetCategory_Status(t *testing.T) {
	d := func(v string) decimal.Decimal {
		out, err := decimal.NewFromString(v)
		if err != nil {
			t.Fatalf("bad decimal literal %q: %v", v, err)
		}
		return out
	}

	tests := []struct {
		name   string
		budget string
		spent  string
		want   BudgetStatus
	}{
		{name: "under budget", budget: "1000", spent: "500", want: BudgetOK},
		{name: "exactly at 90 percent", budget: "1000", spent: "900", want: BudgetNear},
		{name: "just below 90 percent", budget: "1000", spent: "899.99", want: BudgetOK},
		{name: "exactly at ceiling", budget: "1000", spent: "1000", want: BudgetNear},
		{name: "strictly over ceiling", budget: "1000", spent: "1000.01", want: BudgetOver},
		{name: "zero ceiling no spend", budget: "0", spent: "0", want: BudgetOK},
		{name: "zero ceiling any spend", budget: "0", spent: "0.01", want: BudgetOver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BudgetCategory{ID: "food", Budget: d(tt.budget), Spent: d(tt.spent)}
			if got := c.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v (budget=%s spent=%s)", got, tt.want, tt.budget, tt.spent)
			}
		})
	}
}

func TestBudgetCategory_Remaining(t *testing.T) {
	c := BudgetCategory{Budget: decimal.NewFromInt(100), Spent: decimal.NewFromInt(130)}
	if got := c.Remaining(); !got.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("Remaining() = %s, want -30", got)
	}
}

func TestErrorKinds(t *testing.T) {
	ve := &ValidationError{Field: "amount", Reason: "must be positive"}
	if !IsValidation(ve) {
		t.Error("IsValidation() = false for ValidationError")
	}
	if IsNotFound(ve) {
		t.Error("IsNotFound() = true for ValidationError")
	}

	nf := &NotFoundError{Kind: "account", ID: "x"}
	if !IsNotFound(nf) {
		t.Error("IsNotFound() = false for NotFoundError")
	}
	if got, want := nf.Error(), `account "x" not found`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
