package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/services"

	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(":0", services.NewLedgerService(ledger.NewEngine(), nil, nil))
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func transactionBody(amount int64, category, account string) map[string]any {
	return map[string]any{
		"date":        "2024-01-15",
		"description": "api test",
		"category":    category,
		"amount":      amount,
		"account":     account,
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_AddAndGetTransaction(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-120, "food", "bank"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d: %s", rec.Code, rec.Body)
	}
	var added core.Transaction
	decodeInto(t, rec, &added)
	if added.ID == "" {
		t.Fatal("response carries no id")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions/"+added.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET transaction = %d", rec.Code)
	}
	var got core.Transaction
	decodeInto(t, rec, &got)
	if !got.Amount.Equal(decimal.NewFromInt(-120)) {
		t.Errorf("amount = %s, want -120", got.Amount)
	}
}

func TestServer_AddTransaction_Invalid(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{"amount": 10})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid transaction = %d, want 422: %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(nil))
	empty := httptest.NewRecorder()
	s.Handler.ServeHTTP(empty, req)
	if empty.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", empty.Code)
	}
}

func TestServer_GetTransaction_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/transactions/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", rec.Code)
	}
}

func TestServer_UpdateAndDeleteTransaction(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-120, "food", "bank"))
	var added core.Transaction
	decodeInto(t, rec, &added)

	rec = doJSON(t, s, http.MethodPatch, "/api/transactions/"+added.ID, map[string]any{"description": "renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH = %d: %s", rec.Code, rec.Body)
	}
	var updated core.Transaction
	decodeInto(t, rec, &updated)
	if updated.Description != "renamed" {
		t.Errorf("description = %q, want renamed", updated.Description)
	}

	if rec = doJSON(t, s, http.MethodPatch, "/api/transactions/ghost", map[string]any{"description": "x"}); rec.Code != http.StatusNotFound {
		t.Errorf("PATCH unknown id = %d, want 404", rec.Code)
	}

	if rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+added.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", rec.Code)
	}
	// Deleting again is still 204; unknown ids are a no-op.
	if rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+added.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("repeat DELETE = %d, want 204", rec.Code)
	}
}

func TestServer_ImportAndBatchDelete(t *testing.T) {
	s := newTestServer(t)

	batch := []map[string]any{
		transactionBody(-10, "food", "bank"),
		transactionBody(-20, "transport", "cash"),
	}
	rec := doJSON(t, s, http.MethodPost, "/api/transactions/import", batch)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body)
	}
	var imported map[string]int
	decodeInto(t, rec, &imported)
	if imported["imported"] != 2 {
		t.Errorf("imported = %d, want 2", imported["imported"])
	}

	var ids []string
	for _, txn := range s.svc.Transactions() {
		ids = append(ids, txn.ID)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/transactions/batch-delete", map[string]any{"ids": ids})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch-delete = %d: %s", rec.Code, rec.Body)
	}
	var deleted map[string]int
	decodeInto(t, rec, &deleted)
	if deleted["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", deleted["deleted"])
	}
}

func TestServer_QueryTransactions(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(5000, "salary", "bank"))
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-300, "food", "cash"))

	rec := doJSON(t, s, http.MethodGet, "/api/transactions?type=expense", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query = %d: %s", rec.Code, rec.Body)
	}
	var result ledger.QueryResult
	decodeInto(t, rec, &result)
	if result.Total != 1 || len(result.Transactions) != 1 {
		t.Fatalf("result = %+v, want one expense", result)
	}
	if result.Transactions[0].Category != "food" {
		t.Errorf("category = %q, want food", result.Transactions[0].Category)
	}

	if rec = doJSON(t, s, http.MethodGet, "/api/transactions?type=debit", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type param = %d, want 400", rec.Code)
	}
}

func TestServer_QueryCacheServesRepeatReads(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-300, "food", "cash"))

	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, http.MethodGet, "/api/transactions?type=expense", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("read %d = %d", i, rec.Code)
		}
		var result ledger.QueryResult
		decodeInto(t, rec, &result)
		if result.Total != 1 {
			t.Fatalf("read %d total = %d, want 1", i, result.Total)
		}
	}
	if s.queryCache.Size() == 0 {
		t.Error("repeat read did not populate the query cache")
	}

	// A mutation moves the revision; the next read must see fresh data.
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-50, "food", "cash"))
	rec := doJSON(t, s, http.MethodGet, "/api/transactions?type=expense", nil)
	var result ledger.QueryResult
	decodeInto(t, rec, &result)
	if result.Total != 2 {
		t.Errorf("post-mutation total = %d, want 2", result.Total)
	}
}

// A view-configuration change is a mutation like any other: the very next
// read must observe it, cached pages from the old configuration included.
func TestServer_QueryReflectsFilterChange(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(5000, "salary", "bank"))
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-300, "food", "cash"))

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	var result ledger.QueryResult
	decodeInto(t, rec, &result)
	if result.Total != 2 {
		t.Fatalf("initial total = %d, want 2", result.Total)
	}

	if rec = doJSON(t, s, http.MethodPut, "/api/view/filter", map[string]any{"type": "expense"}); rec.Code != http.StatusOK {
		t.Fatalf("PUT filter = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	decodeInto(t, rec, &result)
	if result.Total != 1 {
		t.Fatalf("total after filter change = %d, want 1", result.Total)
	}
	if result.Transactions[0].Category != "food" {
		t.Errorf("category = %q, want food", result.Transactions[0].Category)
	}
}

func TestServer_Accounts(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	var accounts []core.Account
	decodeInto(t, rec, &accounts)
	if len(accounts) != 4 {
		t.Fatalf("seeded accounts = %d, want 4", len(accounts))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{"name": "Savings", "type": "bank"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST account = %d: %s", rec.Code, rec.Body)
	}
	var added core.Account
	decodeInto(t, rec, &added)

	rec = doJSON(t, s, http.MethodPatch, "/api/accounts/"+added.ID, map[string]any{"name": "Rainy Day"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH account = %d", rec.Code)
	}

	if rec = doJSON(t, s, http.MethodDelete, "/api/accounts/"+added.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE account = %d, want 204", rec.Code)
	}
}

func TestServer_Transfer(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transfers", map[string]any{
		"fromAccount": "bank",
		"toAccount":   "cash",
		"amount":      500,
		"description": "withdrawal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/transfers = %d: %s", rec.Code, rec.Body)
	}
	var legs []core.Transaction
	decodeInto(t, rec, &legs)
	if len(legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(legs))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transfers", map[string]any{
		"fromAccount": "bank",
		"toAccount":   "bank",
		"amount":      500,
		"description": "loop",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("same-account transfer = %d, want 422", rec.Code)
	}
}

func TestServer_Budgets(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-950, "food", "bank"))

	rec := doJSON(t, s, http.MethodPut, "/api/budgets/food", map[string]any{"budget": 1000})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT budget = %d: %s", rec.Code, rec.Body)
	}
	var updated budgetView
	decodeInto(t, rec, &updated)
	if updated.Status != core.BudgetNear {
		t.Errorf("status = %s, want near at 950/1000", updated.Status)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets", nil)
	var views []budgetView
	decodeInto(t, rec, &views)
	if len(views) != 5 {
		t.Errorf("budgets = %d, want seeded 5", len(views))
	}

	if rec = doJSON(t, s, http.MethodPut, "/api/budgets/ghost", map[string]any{"budget": 10}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown budget = %d, want 404", rec.Code)
	}
	if rec = doJSON(t, s, http.MethodPut, "/api/budgets/food", map[string]any{"budget": -1}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative ceiling = %d, want 422", rec.Code)
	}
}

func TestServer_ViewEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/view/filter", map[string]any{"type": "expense", "search": "rent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT filter = %d: %s", rec.Code, rec.Body)
	}
	var view viewResponse
	decodeInto(t, rec, &view)
	if view.Filter.Type != ledger.TypeExpense || view.Filter.Search != "rent" {
		t.Errorf("filter = %+v", view.Filter)
	}
	if view.Page.Number != 1 {
		t.Errorf("page = %d, want reset to 1", view.Page.Number)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/view/sort/toggle", map[string]any{"field": "amount"})
	decodeInto(t, rec, &view)
	if view.Sort.Field != ledger.SortByAmount || view.Sort.Direction != ledger.SortAsc {
		t.Errorf("sort after toggle = %+v, want amount asc", view.Sort)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/view/page", map[string]any{"page": 2, "pageSize": 5})
	decodeInto(t, rec, &view)
	if view.Page.Number != 2 || view.Page.Size != 5 {
		t.Errorf("page = %+v, want 2/5", view.Page)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/view/current-account", map[string]any{"account": "cash"})
	decodeInto(t, rec, &view)
	if view.CurrentAccount != "cash" {
		t.Errorf("current account = %q, want cash", view.CurrentAccount)
	}

	if rec = doJSON(t, s, http.MethodPut, "/api/view/current-account", map[string]any{"account": "ghost"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown account = %d, want 404", rec.Code)
	}
	if rec = doJSON(t, s, http.MethodPut, "/api/view/sort", map[string]any{"field": "bogus", "direction": "asc"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad sort = %d, want 422", rec.Code)
	}
}

func TestServer_LedgerAndStatistics(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(5000, "salary", "bank"))

	rec := doJSON(t, s, http.MethodGet, "/api/statistics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET statistics = %d", rec.Code)
	}
	var stats core.Statistics
	decodeInto(t, rec, &stats)
	if !stats.TotalIncome.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("TotalIncome = %s, want 5000", stats.TotalIncome)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/ledger", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET ledger = %d", rec.Code)
	}
	var full ledgerResponse
	decodeInto(t, rec, &full)
	if len(full.Snapshot.Transactions) != 1 {
		t.Errorf("snapshot transactions = %d, want 1", len(full.Snapshot.Transactions))
	}
	if full.Revision == 0 {
		t.Error("revision missing from ledger response")
	}
}

func TestServer_Reset(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-10, "food", "bank"))

	rec := doJSON(t, s, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/reset = %d", rec.Code)
	}
	if got := len(s.svc.Transactions()); got != 0 {
		t.Errorf("transactions after reset = %d, want 0", got)
	}
}

func TestServer_RateLimitsMutations(t *testing.T) {
	s := newTestServer(t)

	limited := false
	for i := 0; i < 70; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody(-1, "food", "bank"))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Errorf("Retry-After = %q, want 60", got)
			}
			break
		}
	}
	if !limited {
		t.Error("70 rapid writes from one client were never rate limited")
	}

	// Reads stay unthrottled.
	for i := 0; i < 70; i++ {
		if rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil); rec.Code != http.StatusOK {
			t.Fatalf("read %d = %d, want 200", i, rec.Code)
		}
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestServer_CacheKeyFormat(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodGet, "/api/transactions?type=income", nil)

	key := fmt.Sprintf("%d|type=income", s.svc.Revision())
	if _, ok := s.queryCache.Get(key); !ok {
		t.Errorf("cache entry for key %q missing", key)
	}
}
