package http

import (
	"log/slog"
	"net/http"

	"tally/internal/ledger"
)

// ledgerResponse is the full snapshot-read surface in one payload.
type ledgerResponse struct {
	Snapshot   ledger.Snapshot `json:"snapshot"`
	Statistics any             `json:"statistics"`
	Revision   uint64          `json:"revision"`
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledgerResponse{
		Snapshot:   s.svc.Snapshot(),
		Statistics: s.svc.Statistics(),
		Revision:   s.svc.Revision(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statistics())
}

type viewResponse struct {
	Filter         ledger.Filter `json:"filter"`
	Sort           ledger.Sort   `json:"sort"`
	Page           ledger.Page   `json:"pagination"`
	CurrentAccount string        `json:"currentAccount"`
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	filter, sort, page, current := s.svc.ViewConfig()
	writeJSON(w, http.StatusOK, viewResponse{
		Filter:         filter,
		Sort:           sort,
		Page:           page,
		CurrentAccount: current,
	})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var filter ledger.Filter
	if err := decodeBody(r, &filter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Type == "" {
		filter.Type = ledger.TypeAll
	}

	s.svc.SetFilter(r.Context(), filter)
	s.handleGetView(w, r)
}

func (s *Server) handleSetSort(w http.ResponseWriter, r *http.Request) {
	var sort ledger.Sort
	if err := decodeBody(r, &sort); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.SetSort(r.Context(), sort); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.handleGetView(w, r)
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field ledger.SortField `json:"field"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.ToggleSort(r.Context(), req.Field); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.handleGetView(w, r)
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page     *int `json:"page,omitempty"`
		PageSize *int `json:"pageSize,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PageSize != nil {
		if err := s.svc.SetPageSize(r.Context(), *req.PageSize); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.Page != nil {
		if err := s.svc.SetPage(r.Context(), *req.Page); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	s.handleGetView(w, r)
}

func (s *Server) handleSetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.SetCurrentAccount(r.Context(), req.Account); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.handleGetView(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.svc.Reset(r.Context())
	slog.WarnContext(r.Context(), "Ledger reset to initial state")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
