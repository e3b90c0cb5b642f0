package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	filter, sort, page, _ := s.svc.ViewConfig()
	filter, sort, page, err := ParseQueryParams(r.URL.Query(), filter, sort, page)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Revision in the key makes entries from before any mutation unreachable.
	key := fmt.Sprintf("%d|%s", s.svc.Revision(), r.URL.RawQuery)
	if result, found := s.queryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Query cache hit", "key", key)
		writeJSON(w, http.StatusOK, result)
		return
	}

	result := s.svc.QueryWith(filter, sort, page)
	s.queryCache.Set(key, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := s.svc.Transaction(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("transaction %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeBody(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.svc.AddTransaction(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction added",
		"id", added.ID,
		"amount", added.Amount.String(),
		"category", added.Category,
		"account", added.Account)
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	var batch []core.Transaction
	if err := decodeBody(r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.svc.ImportTransactions(r.Context(), batch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transactions imported", "count", count)
	writeJSON(w, http.StatusCreated, map[string]int{"imported": count})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch core.TransactionPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	// Delete is a silent no-op for unknown ids.
	s.svc.DeleteTransaction(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBatchDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed := s.svc.DeleteTransactions(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": removed})
}
