package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"flatshare/internal/core"
	applog "flatshare/internal/log"
)

// handleListItems returns open items first, each group newest first.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.shopping.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentShopping, applog.OpList)
		return
	}
	open, done := make([]itemView, 0, len(items)), make([]itemView, 0)
	for _, item := range items {
		if item.Completed {
			done = append(done, s.itemView(item))
		} else {
			open = append(open, s.itemView(item))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":     append(open, done...),
		"open":      len(open),
		"completed": len(done),
	})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if problems := s.requests.decode(w, r, &req); problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}
	item, err := s.shopping.Add(r.Context(), req.toNewItem())
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentShopping, applog.OpCreate)
		return
	}
	w.Header().Set("Location", "/api/shopping/"+item.ID)
	writeJSON(w, http.StatusCreated, s.itemView(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemPatch
	if problems := s.requests.decode(w, r, &req); problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	item, err := s.shopping.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentShopping, applog.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, s.itemView(item))
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.shopping.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentShopping, applog.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, s.itemView(item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.shopping.Delete(r.Context(), strings.TrimSpace(chi.URLParam(r, "id"))); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentShopping, applog.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleParseItem splits spoken or typed text into name and quantity so a
// client can prefill the add form.
func (s *Server) handleParseItem(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if problems := s.requests.decode(w, r, &req); problems != nil {
		writeError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}
	writeJSON(w, http.StatusOK, core.ParseItemText(req.Text))
}
