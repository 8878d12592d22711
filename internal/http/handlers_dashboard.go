package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"flatshare/internal/cache"
	"flatshare/internal/core"
	"flatshare/internal/export"
	applog "flatshare/internal/log"
	"flatshare/internal/services"
)

// snapshot returns the latest recomputation or writes a 503 when none is
// usable.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (services.Result, bool) {
	res := s.balances.Latest()
	if res.Ready() {
		return res, true
	}
	if res.Err != nil {
		s.events.LogError(r.Context(), "Serving without balances", res.Err,
			applog.ComponentBalance, applog.OpCompute, applog.ErrorTypeUnavailable)
		writeUnavailable(w, "ledger unavailable")
	} else {
		writeUnavailable(w, "balances not computed yet")
	}
	return services.Result{}, false
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	res, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation":    res.Generation,
		"computed_at":   res.ComputedAt,
		"expense_count": res.ExpenseCount,
		"net_total":     s.money(res.Sheet.NetTotal()),
		"balances":      s.balanceViews(res.Sheet),
	})
}

// handleMonthlySummary groups the snapshot by month, newest first.
// Optional paid_by and category narrow it down.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	res, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	f, err := filterFromQuery(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(res.Generation, "monthly", string(f.PaidBy), strings.ToLower(f.Category),
		strconv.FormatInt(f.From.Unix(), 10), strconv.FormatInt(f.To.Unix(), 10))
	periods, _ := s.periodCache.GetOrCompute(key, func() ([]core.Period, error) {
		return core.Periods(core.GroupByMonthIn(f.Apply(res.Expenses), s.loc), true), nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": res.Generation,
		"months":     s.periodViews(periods),
	})
}

// handleDailySummary lists per-day totals of one month, the current one
// by default.
func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	res, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = s.now().In(s.loc).Format(core.MonthLayout)
	}

	key := cache.Key(res.Generation, "daily", month)
	periods, err := s.periodCache.GetOrCompute(key, func() ([]core.Period, error) {
		return core.DailyInMonth(res.Expenses, month, s.loc)
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": res.Generation,
		"month":      month,
		"days":       s.periodViews(periods),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	res, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	now := s.now()

	key := cache.Key(res.Generation, "overview", now.In(s.loc).Format(core.DayLayout))
	ov, _ := s.overviewCache.GetOrCompute(key, func() (core.Overview, error) {
		return core.ComputeOverview(res.Expenses, s.roster, now, s.loc), nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": res.Generation,
		"total":      s.money(ov.Total),
		"count":      ov.Count,
		"per_person": s.money(ov.PerPerson),
		"this_month": s.money(ov.ThisMonth),
		"today":      s.money(ov.Today),
		"recent":     s.expenseViews(ov.Recent),
		"categories": core.Categories(res.Expenses),
	})
}

// handleExportCSV streams the filtered ledger read fresh from the store.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := s.expenses.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err, applog.ComponentHTTP, applog.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, expenses, s.roster, s.loc); err != nil {
		s.writeServiceError(w, r, err, applog.ComponentHTTP, applog.OpExport)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now().In(s.loc))+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
