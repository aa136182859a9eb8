package http

import (
	"net/http"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"

	"github.com/go-chi/chi/v5"
)

type categoriesResponse struct {
	ExpenseGroups    []core.CategoryGroup `json:"expenseGroups"`
	IncomeCategories []string             `json:"incomeCategories"`
}

type summaryStatusResponse struct {
	Allowed bool `json:"allowed"`
}

// username is set by the auth middleware on every /api route.
func username(r *http.Request) string {
	u, _ := UsernameFromContext(r.Context())
	return u
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		ExpenseGroups:    core.Taxonomy(),
		IncomeCategories: core.IncomeCategories(),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions.List(r.Context(), username(r))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := req.toTransaction(s.svc.Metrics.Location())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Transactions.Create(r.Context(), username(r), tx)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.Get(r.Context(), username(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := req.toTransaction(s.svc.Metrics.Location())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Transactions.Update(r.Context(), username(r), chi.URLParam(r, "id"), tx)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), username(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Metrics.Snapshot(r.Context(), username(r))
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.Limits.Get(r.Context(), username(r))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateLimits(w http.ResponseWriter, r *http.Request) {
	var req limitsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	cfg, err := s.svc.Limits.Update(r.Context(), username(r), req.Limits)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleExceededLimits(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Limits.Exceeded(r.Context(), username(r))
	if err != nil {
		writeError(w, r, log.OpCompare, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummaryStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summaryStatusResponse{Allowed: s.svc.Summary.Allowed(username(r))})
}

func (s *Server) handleRequestSummary(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Summary.Request(r.Context(), username(r)); err != nil {
		writeError(w, r, log.OpPublish, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
