// Package ledger declares the storage ports the services depend on.
// Backends live in internal/memory and internal/storage.
package ledger

import (
	"context"
	"errors"

	"flatshare/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("not found")

type (
	// ExpenseLister returns a snapshot of every expense, newest first.
	// The returned slice is owned by the caller.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseReader interface {
		GetExpense(ctx context.Context, id string) (core.Expense, error)
	}

	ExpenseWriter interface {
		AddExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
	}

	// ExpenseStore is the full expense port.
	ExpenseStore interface {
		ExpenseLister
		ExpenseReader
		ExpenseWriter
	}

	ShoppingStore interface {
		ListItems(ctx context.Context) ([]core.ShoppingItem, error)
		GetItem(ctx context.Context, id string) (core.ShoppingItem, error)
		AddItem(ctx context.Context, item core.ShoppingItem) error
		UpdateItem(ctx context.Context, item core.ShoppingItem) error
		DeleteItem(ctx context.Context, id string) error
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
