// Package memory is an in-process ledger backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"flatshare/internal/core"
	"flatshare/internal/ledger"
)

// Store keeps expenses and shopping items in memory.
type Store struct {
	mu       sync.RWMutex
	expenses []core.Expense
	items    []core.ShoppingItem
}

var (
	_ ledger.ExpenseStore  = (*Store)(nil)
	_ ledger.ShoppingStore = (*Store)(nil)
	_ ledger.Pinger        = (*Store)(nil)
)

func New() *Store { return &Store{} }

// NewWithExpenses seeds the store.
func NewWithExpenses(expenses ...core.Expense) *Store {
	s := New()
	s.expenses = append(s.expenses, expenses...)
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	s.mu.RUnlock()
	core.SortNewestFirst(out)
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.expenses {
		if existing.ID == e.ID {
			return fmt.Errorf("expense %s already exists", e.ID)
		}
	}
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses = append(s.expenses[:i:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("expense %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) ListItems(ctx context.Context) ([]core.ShoppingItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.ShoppingItem, len(s.items))
	copy(out, s.items)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) GetItem(_ context.Context, id string) (core.ShoppingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return core.ShoppingItem{}, fmt.Errorf("item %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) AddItem(_ context.Context, item core.ShoppingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *Store) UpdateItem(_ context.Context, item core.ShoppingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", item.ID, ledger.ErrNotFound)
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", id, ledger.ErrNotFound)
}
