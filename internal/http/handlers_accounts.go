package http

import (
	"log/slog"
	"net/http"

	"tally/internal/core"

	"github.com/shopspring/decimal"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Accounts())
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var spec core.Account
	if err := decodeBody(r, &spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.svc.AddAccount(r.Context(), spec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Account added", "id", added.ID, "name", added.Name, "type", added.Type)
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch core.AccountPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.UpdateAccount(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Cascade: transactions referencing the account go with it.
	s.svc.DeleteAccount(r.Context(), id)
	slog.InfoContext(r.Context(), "Account deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	legs, err := s.svc.Transfer(r.Context(), req.FromAccount, req.ToAccount, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transfer recorded",
		"from", req.FromAccount,
		"to", req.ToAccount,
		"amount", req.Amount.String())
	writeJSON(w, http.StatusCreated, legs)
}
