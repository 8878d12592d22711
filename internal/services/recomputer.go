package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"flatshare/internal/core"
	"flatshare/internal/ledger"
)

// ErrLedgerUnavailable means the expense ledger could not be read. It is
// retryable and distinct from an empty ledger.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// Result is one recomputation over a single ledger snapshot.
type Result struct {
	Sheet core.BalanceSheet
	// Expenses is the snapshot the sheet was folded from, newest first.
	// Shared between readers; do not modify.
	Expenses     []core.Expense
	Generation   uint64
	ComputedAt   time.Time
	ExpenseCount int
	// Err is set when the last attempt failed. Sheet then still holds the
	// previous successful result, if any.
	Err error
}

// Ready reports whether a balance sheet has been computed and the last
// attempt succeeded.
func (r Result) Ready() bool {
	return r.Err == nil && r.Generation > 0
}

// Recomputer recomputes balances whenever it is notified of a ledger
// change. Notifications arriving while one is already pending collapse
// into that one, so a burst of writes costs at most one extra fold.
type Recomputer struct {
	lister ledger.ExpenseLister
	roster core.Roster
	now    func() time.Time

	pending chan struct{}

	resultMu sync.RWMutex
	latest   Result

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecomputer(lister ledger.ExpenseLister, roster core.Roster) *Recomputer {
	return &Recomputer{
		lister:  lister,
		roster:  roster,
		now:     time.Now,
		pending: make(chan struct{}, 1),
	}
}

// Notify requests a recomputation. It never blocks.
func (r *Recomputer) Notify() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Latest returns the most recent result.
func (r *Recomputer) Latest() Result {
	r.resultMu.RLock()
	defer r.resultMu.RUnlock()
	return r.latest
}

// Recompute folds a fresh snapshot synchronously and publishes the result.
func (r *Recomputer) Recompute(ctx context.Context) Result {
	start := r.now()
	expenses, err := r.lister.ListExpenses(ctx)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err))
	}

	sheet, err := core.ComputeBalances(expenses, r.roster)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("compute balances: %w", err))
	}

	r.resultMu.Lock()
	r.latest = Result{
		Sheet:        sheet,
		Expenses:     expenses,
		Generation:   r.latest.Generation + 1,
		ComputedAt:   r.now(),
		ExpenseCount: len(expenses),
	}
	res := r.latest
	r.resultMu.Unlock()

	slog.DebugContext(ctx, "Balances recomputed",
		"generation", res.Generation,
		"expenses", res.ExpenseCount,
		"duration", r.now().Sub(start))
	return res
}

func (r *Recomputer) fail(ctx context.Context, err error) Result {
	slog.ErrorContext(ctx, "Balance recomputation failed", "error", err)
	r.resultMu.Lock()
	r.latest.Err = err
	res := r.latest
	r.resultMu.Unlock()
	return res
}

// Start computes once and then recomputes on every notification until
// Stop is called or ctx ends. Returns an error if already running.
func (r *Recomputer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("recomputer is already running")
	}
	r.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	r.stopCh, r.doneCh = stop, done
	r.mu.Unlock()

	go r.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Recomputer started", "roster_size", r.roster.Len())
	return nil
}

// Stop signals the loop to exit and waits for it. Concurrent and repeated
// calls are fine.
func (r *Recomputer) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Recomputer stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recomputer stop timed out")
		return ctx.Err()
	}
}

func (r *Recomputer) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Recomputer) runLoop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		// A loop that ends with its ctx is no longer running either.
		r.mu.Lock()
		if r.doneCh == done {
			r.running = false
		}
		r.mu.Unlock()
		close(done)
	}()

	r.Recompute(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-r.pending:
			r.Recompute(ctx)
		}
	}
}
