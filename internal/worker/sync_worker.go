// Package worker mirrors ledger changes into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"flatshare/internal/amqp"
	"flatshare/internal/ledger"
	applog "flatshare/internal/log"
	"flatshare/internal/sheets"
)

// Store is the part of the ledger the worker reads.
type Store interface {
	ledger.ExpenseLister
	ledger.ExpenseReader
}

// SyncWorker applies expense change messages to a sheets mirror and
// periodically sweeps the ledger for rows it missed.
type SyncWorker struct {
	store    Store
	mirror   sheets.Mirror
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker builds a worker. An interval of zero disables the
// periodic sweep; Reconcile can still be called directly.
func NewSyncWorker(store Store, mirror sheets.Mirror, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		store:    store,
		mirror:   mirror,
		interval: interval,
	}
}

// HandleChange processes a single change message. Returning an error
// requeues the message.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Entity != amqp.EntityExpense {
		return nil
	}

	slog.InfoContext(ctx, "Processing change message",
		applog.FieldComponent, applog.ComponentWorker,
		"op", msg.Op,
		applog.FieldExpenseID, msg.ID)

	switch msg.Op {
	case amqp.OpCreate, amqp.OpUpdate:
		return w.mirrorExpense(ctx, msg.ID)
	case amqp.OpDelete:
		if err := w.mirror.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete expense %s from sheet: %w", msg.ID, err)
		}
		slog.InfoContext(ctx, "Removed expense from sheet",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldExpenseID, msg.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown change operation",
			applog.FieldComponent, applog.ComponentWorker, "op", msg.Op)
		return nil
	}
}

func (w *SyncWorker) mirrorExpense(ctx context.Context, id string) error {
	e, err := w.store.GetExpense(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		// Deleted before we got here; the delete message follows.
		slog.InfoContext(ctx, "Expense gone before mirroring, skipping",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldExpenseID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.mirror.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append expense %s to sheet: %w", id, err)
	}
	slog.InfoContext(ctx, "Mirrored expense",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldExpenseID, id,
		applog.FieldSheetsRef, ref,
		applog.FieldAmount, e.Amount.StringFixed(2))
	return nil
}

// Reconcile appends every stored expense the sheet does not hold yet and
// returns how many were added. Individual append failures are logged and
// counted; the sweep goes on.
func (w *SyncWorker) Reconcile(ctx context.Context) (int, error) {
	expenses, err := w.store.ListExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	mirrored, err := w.mirror.MirroredIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mirrored ids: %w", err)
	}

	added, failed := 0, 0
	// Oldest first so the sheet stays roughly chronological.
	for i := len(expenses) - 1; i >= 0; i-- {
		e := expenses[i]
		if _, ok := mirrored[e.ID]; ok {
			continue
		}
		if _, err := w.mirror.Append(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror expense during reconcile",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldExpenseID, e.ID,
				applog.FieldError, err)
			failed++
			continue
		}
		added++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		applog.FieldComponent, applog.ComponentWorker,
		"total", len(expenses),
		"added", added,
		"errors", failed)

	if failed > 0 {
		return added, fmt.Errorf("reconcile: %d expenses could not be mirrored", failed)
	}
	return added, nil
}

// Start runs a reconcile immediately and then on every interval until
// Stop is called or ctx ends.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stop, done
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Sync worker started",
		applog.FieldComponent, applog.ComponentWorker,
		"reconcile_interval", w.interval)
	return nil
}

// Stop signals the loop to exit and waits for it. It is safe to call
// concurrently and more than once.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Sync worker stopped gracefully", applog.FieldComponent, applog.ComponentWorker)
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out", applog.FieldComponent, applog.ComponentWorker)
		return ctx.Err()
	}
}

// exited clears the running flag when the loop ends on its own.
func (w *SyncWorker) exited(done chan struct{}) {
	w.mu.Lock()
	if w.doneCh == done {
		w.running = false
	}
	w.mu.Unlock()
	close(done)
}

func (w *SyncWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer w.exited(done)

	if _, err := w.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup reconcile failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldError, err)
	}
	if w.interval <= 0 {
		select {
		case <-stop:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldError, err)
			}
		}
	}
}
