// Package memory is an in-process spreadsheet mirror for tests and for
// running the worker without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flatshare/internal/core"
	"flatshare/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	roster core.Roster
	loc    *time.Location
	rows   [][]any
	index  map[string]int
	// Err, when set, is returned by every call.
	Err error
}

func New(roster core.Roster, loc *time.Location) *Store {
	return &Store{roster: roster, loc: loc, index: make(map[string]int)}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if i, ok := s.index[e.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, sheets.Row(e, s.roster, s.loc))
	s.index[e.ID] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.index, id)
	for k, j := range s.index {
		if j > i {
			s.index[k] = j - 1
		}
	}
	return nil
}

func (s *Store) MirroredIDs(context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string]struct{}, len(s.index))
	for id := range s.index {
		out[id] = struct{}{}
	}
	return out, nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
