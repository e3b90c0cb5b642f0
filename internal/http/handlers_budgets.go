package http

import (
	"net/http"

	"tally/internal/core"

	"github.com/shopspring/decimal"
)

// budgetView decorates a category with its derived status so clients
// don't each reimplement the near/over thresholds.
type budgetView struct {
	core.BudgetCategory
	Status core.BudgetStatus `json:"status"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets := s.svc.Budgets()
	views := make([]budgetView, len(budgets))
	for i, b := range budgets {
		views[i] = budgetView{BudgetCategory: b, Status: b.Status()}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Budget decimal.Decimal `json:"budget"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.UpdateBudget(r.Context(), id, req.Budget)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetView{BudgetCategory: updated, Status: updated.Status()})
}
