package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flatshare/internal/amqp"
	"flatshare/internal/core"
	"flatshare/internal/ledger"
)

// ErrInvalidExpense wraps every validation failure of a new expense.
var ErrInvalidExpense = errors.New("invalid expense")

// Notifier is told about ledger changes. *Recomputer implements it.
type Notifier interface {
	Notify()
}

// ChangePublisher fans changes out to other processes. *amqp.Client
// implements it.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// NewExpense is the client-supplied part of an expense.
type NewExpense struct {
	Description string
	Amount      decimal.Decimal
	PaidBy      core.UserID
	Split       core.Split
	// Date defaults to the current time when zero.
	Date     time.Time
	Category string
	Notes    string
}

// ExpenseService orchestrates expense writes across the store, the local
// recomputer and the change exchange.
type ExpenseService struct {
	store     ledger.ExpenseStore
	roster    core.Roster
	notifier  Notifier
	publisher ChangePublisher
	now       func() time.Time
}

// NewExpenseService wires the service. notifier and publisher may be nil.
func NewExpenseService(store ledger.ExpenseStore, roster core.Roster, notifier Notifier, publisher ChangePublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		roster:    roster,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *ExpenseService) Roster() core.Roster { return s.roster }

func (s *ExpenseService) build(in NewExpense) (core.Expense, error) {
	e := core.Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount.Round(2),
		PaidBy:      in.PaidBy,
		Split:       in.Split,
		Date:        in.Date,
		Category:    strings.TrimSpace(in.Category),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	e.Date = e.Date.UTC()
	if err := core.ValidateExpense(e, s.roster); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	return e, nil
}

// Preview validates in and returns the expense with what each user would
// owe the payer. Nothing is stored.
func (s *ExpenseService) Preview(in NewExpense) (core.Expense, map[core.UserID]decimal.Decimal, error) {
	e, err := s.build(in)
	if err != nil {
		return core.Expense{}, nil, err
	}
	return e, core.ResolveSplit(e), nil
}

// Create validates, stores and announces a new expense.
func (s *ExpenseService) Create(ctx context.Context, in NewExpense) (core.Expense, error) {
	e, err := s.build(in)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()

	if err := s.store.AddExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.changed(ctx, amqp.OpCreate, e.ID)
	return e, nil
}

// Delete removes an expense. Balances are recomputed from what remains.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, amqp.OpDelete, id)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// List returns the expenses matching f, newest first.
func (s *ExpenseService) List(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return f.Apply(expenses), nil
}

func (s *ExpenseService) changed(ctx context.Context, op, id string) {
	if s.notifier != nil {
		s.notifier.Notify()
	}
	publish(ctx, s.publisher, amqp.NewChangeMessage(amqp.EntityExpense, op, id))
}

// publish never fails the caller: the write is already durable locally.
func publish(ctx context.Context, p ChangePublisher, msg *amqp.ChangeMessage) {
	if p == nil {
		return
	}
	if err := p.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"entity", msg.Entity,
			"op", msg.Op,
			"id", msg.ID,
			"error", err)
	}
}
