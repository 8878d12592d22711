package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"flatshare/internal/core"
	applog "flatshare/internal/log"
)

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": s.roster.Members()})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := s.expenses.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExpense, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": s.expenseViews(expenses),
		"count":    len(expenses),
		"total":    s.money(core.Total(expenses)),
	})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExpense, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, s.expenseView(e))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if problems := s.requests.decode(w, r, &req); problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}
	in, problems := req.toNewExpense()
	if problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}

	e, err := s.expenses.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExpense, applog.OpCreate)
		return
	}
	s.events.LogExpenseCreated(r.Context(), e)
	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, s.expenseView(e))
}

// handlePreviewExpense shows what each participant would owe without
// storing anything.
func (s *Server) handlePreviewExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if problems := s.requests.decode(w, r, &req); problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}
	in, problems := req.toNewExpense()
	if problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}

	e, shares, err := s.expenses.Preview(in)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExpense, applog.OpPreview)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expense": s.expenseView(e),
		"owed":    s.debts(shares),
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentExpense, applog.OpDelete)
		return
	}
	s.events.LogExpenseDeleted(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}
