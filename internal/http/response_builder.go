package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"flatshare/internal/ledger"
	applog "flatshare/internal/log"
	"flatshare/internal/services"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	// Retryable tells clients the same request may succeed later.
	Retryable bool `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "component", applog.ComponentHTTP, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func writeUnavailable(w http.ResponseWriter, msg string) {
	w.Header().Set("Retry-After", "5")
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msg, Retryable: true})
}

// writeServiceError maps a service error onto a status code and logs it.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrInvalidExpense), errors.Is(err, services.ErrInvalidItem):
		s.events.LogError(ctx, "Rejected invalid input", err, component, op, applog.ErrorTypeValidation)
		writeError(w, http.StatusBadRequest, "validation failed", splitErrors(err)...)
	case errors.Is(err, ledger.ErrNotFound):
		s.events.LogError(ctx, "Record not found", err, component, op, applog.ErrorTypeNotFound)
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrLedgerUnavailable):
		s.events.LogError(ctx, "Ledger unavailable", err, component, op, applog.ErrorTypeUnavailable)
		writeUnavailable(w, "ledger unavailable")
	default:
		s.events.LogError(ctx, "Request failed", err, component, op, applog.ErrorTypeInternal)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// splitErrors turns a wrapped errors.Join into one message per line,
// dropping the sentinel prefix added by the services.
func splitErrors(err error) []string {
	msg := err.Error()
	for _, prefix := range []string{services.ErrInvalidExpense.Error() + ": ", services.ErrInvalidItem.Error() + ": "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
