// Package http serves the household ledger as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"flatshare/internal/cache"
	"flatshare/internal/core"
	"flatshare/internal/ledger"
	applog "flatshare/internal/log"
	"flatshare/internal/middleware/ratelimit"
	"flatshare/internal/middleware/security"
	"flatshare/internal/middleware/trace"
	"flatshare/internal/services"
)

// BalanceSource hands out the most recent recomputation.
// *services.Recomputer implements it.
type BalanceSource interface {
	Latest() services.Result
}

// Deps are the collaborators of a Server. Pinger may be nil.
type Deps struct {
	Expenses *services.ExpenseService
	Shopping *services.ShoppingService
	Balances BalanceSource
	Pinger   ledger.Pinger
	// Location is used for day and month grouping; nil means UTC.
	Location           *time.Location
	Currency           string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	expenses *services.ExpenseService
	shopping *services.ShoppingService
	balances BalanceSource
	pinger   ledger.Pinger
	roster   core.Roster
	loc      *time.Location
	currency string
	now      func() time.Time

	requests *requestValidator
	events   *applog.StructuredLogger

	// Report caches, keyed by ledger generation.
	periodCache   *cache.LRUCache[[]core.Period]
	overviewCache *cache.LRUCache[core.Overview]
	cacheManager  *cache.Manager

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

func NewServer(addr string, d Deps) *Server {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := d.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		expenses:      d.Expenses,
		shopping:      d.Shopping,
		balances:      d.Balances,
		pinger:        d.Pinger,
		roster:        d.Expenses.Roster(),
		loc:           loc,
		currency:      d.Currency,
		now:           time.Now,
		requests:      newRequestValidator(),
		events:        applog.NewStructuredLogger(logger),
		periodCache:   cache.NewLRUCache[[]core.Period](64, 10*time.Minute),
		overviewCache: cache.NewLRUCache[core.Overview](16, time.Minute),
		cacheManager:  cache.NewManager(),
	}

	ips := security.NewIPResolver()
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute})
	s.tracer = trace.NewMiddleware(ips.ClientIP)

	s.cacheManager.Register(s.periodCache)
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(5 * time.Minute)

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger.WithComponent(applog.ComponentHTTP)))
	r.Use(applog.RequestIDMiddleware(trace.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(ips.ClientIP, s.handleRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", s.handleUsers)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Post("/preview", s.handlePreviewExpense)
			r.Get("/{id}", s.handleGetExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Get("/balances", s.handleBalances)
		r.Route("/summary", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlySummary)
			r.Get("/daily", s.handleDailySummary)
			r.Get("/overview", s.handleOverview)
		})
		r.Get("/export.csv", s.handleExportCSV)

		r.Route("/shopping", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/", s.handleAddItem)
			r.Post("/parse", s.handleParseItem)
			r.Patch("/{id}", s.handleUpdateItem)
			r.Post("/{id}/toggle", s.handleToggleItem)
			r.Delete("/{id}", s.handleDeleteItem)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopBackground()
	return s.Server.Shutdown(ctx)
}

// Close stops background routines without serving. Tests that never call
// ListenAndServe use it.
func (s *Server) Close() error {
	s.stopBackground()
	return s.Server.Close()
}

func (s *Server) stopBackground() {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		st := s.periodCache.Stats()
		slog.Info("HTTP server background routines stopped",
			"component", applog.ComponentHTTP,
			"cache_hits", st.Hits,
			"cache_misses", st.Misses,
			"requests", s.tracer.GetMetrics().TotalRequests,
		)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the backend answers and a balance sheet
// has been computed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness ping failed", "component", applog.ComponentBackend, "error", err)
			writeUnavailable(w, "backend unreachable")
			return
		}
	}
	if res := s.balances.Latest(); !res.Ready() {
		writeUnavailable(w, "balances not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		"component", applog.ComponentRateLimit,
		"request_id", trace.RequestID(r),
		"path", r.URL.Path,
	)
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:     "rate limit exceeded, try again later",
		Retryable: true,
	})
}
