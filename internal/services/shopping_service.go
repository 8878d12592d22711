package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"flatshare/internal/amqp"
	"flatshare/internal/core"
	"flatshare/internal/ledger"
)

// ErrInvalidItem wraps every validation failure of a shopping item.
var ErrInvalidItem = errors.New("invalid shopping item")

// NewItem is the client-supplied part of a shopping item.
type NewItem struct {
	Name       string
	Quantity   string
	AddedBy    core.UserID
	AssignedTo core.UserID
	// Priority defaults to medium when empty.
	Priority string
	Notes    string
}

type ShoppingService struct {
	store     ledger.ShoppingStore
	roster    core.Roster
	publisher ChangePublisher
	now       func() time.Time
}

func NewShoppingService(store ledger.ShoppingStore, roster core.Roster, publisher ChangePublisher) *ShoppingService {
	return &ShoppingService{
		store:     store,
		roster:    roster,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *ShoppingService) List(ctx context.Context) ([]core.ShoppingItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return items, nil
}

func (s *ShoppingService) Add(ctx context.Context, in NewItem) (core.ShoppingItem, error) {
	prio, err := core.ParsePriority(in.Priority)
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	item := core.ShoppingItem{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Quantity:   strings.TrimSpace(in.Quantity),
		AddedBy:    in.AddedBy,
		AssignedTo: in.AssignedTo,
		Priority:   prio,
		Notes:      strings.TrimSpace(in.Notes),
		Date:       s.now().UTC(),
	}
	if err := core.ValidateItem(item, s.roster); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	if err := s.store.AddItem(ctx, item); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("save shopping item: %w", err)
	}
	publish(ctx, s.publisher, amqp.NewChangeMessage(amqp.EntityItem, amqp.OpCreate, item.ID))
	return item, nil
}

// Update applies a partial change to an existing item.
func (s *ShoppingService) Update(ctx context.Context, id string, u core.ShoppingUpdate) (core.ShoppingItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	item = item.Apply(u)
	if err := core.ValidateItem(item, s.roster); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("update shopping item: %w", err)
	}
	publish(ctx, s.publisher, amqp.NewChangeMessage(amqp.EntityItem, amqp.OpUpdate, id))
	return item, nil
}

// Toggle flips the completed flag of an item.
func (s *ShoppingService) Toggle(ctx context.Context, id string) (core.ShoppingItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	done := !item.Completed
	return s.Update(ctx, id, core.ShoppingUpdate{Completed: &done})
}

func (s *ShoppingService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	publish(ctx, s.publisher, amqp.NewChangeMessage(amqp.EntityItem, amqp.OpDelete, id))
	return nil
}
