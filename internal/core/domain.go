// Package core holds the household ledger domain: expenses, the split
// strategies, the balance fold and the reporting aggregations.
//
// Everything in this package is pure. Functions never perform I/O and
// never keep state between calls, so callers can recompute from scratch
// as often as they like.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserID identifies a roster member. Only identity equality matters.
type UserID string

// Member is a roster entry. Name is presentation only.
type Member struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

var (
	ErrEmptyRoster     = errors.New("roster is empty")
	ErrDuplicateMember = errors.New("duplicate roster member")
)

// Roster is the fixed set of users balances are computed over.
// The zero value is an empty roster and is rejected by ComputeBalances.
type Roster struct {
	members []Member
	index   map[UserID]int
}

// NewRoster builds a roster preserving the given order.
func NewRoster(members ...Member) (Roster, error) {
	if len(members) == 0 {
		return Roster{}, ErrEmptyRoster
	}
	r := Roster{
		members: make([]Member, 0, len(members)),
		index:   make(map[UserID]int, len(members)),
	}
	for _, m := range members {
		id := UserID(strings.TrimSpace(string(m.ID)))
		if id == "" {
			return Roster{}, fmt.Errorf("roster member with empty id")
		}
		if _, dup := r.index[id]; dup {
			return Roster{}, fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = string(id)
		}
		r.index[id] = len(r.members)
		r.members = append(r.members, Member{ID: id, Name: name})
	}
	return r, nil
}

// ParseRoster parses "id:Name,id2:Name2". The name part is optional.
func ParseRoster(s string) (Roster, error) {
	var members []Member
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, _ := strings.Cut(part, ":")
		members = append(members, Member{ID: UserID(strings.TrimSpace(id)), Name: name})
	}
	return NewRoster(members...)
}

// MustRoster is NewRoster for fixed rosters known to be valid.
func MustRoster(ids ...UserID) Roster {
	members := make([]Member, len(ids))
	for i, id := range ids {
		members[i] = Member{ID: id}
	}
	r, err := NewRoster(members...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Roster) Len() int { return len(r.members) }

func (r Roster) IsEmpty() bool { return len(r.members) == 0 }

func (r Roster) Contains(id UserID) bool {
	_, ok := r.index[id]
	return ok
}

// IDs returns the member ids in roster order.
func (r Roster) IDs() []UserID {
	ids := make([]UserID, len(r.members))
	for i, m := range r.members {
		ids[i] = m.ID
	}
	return ids
}

// Members returns a copy of the roster entries.
func (r Roster) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// Name returns the display name, or the raw id for unknown users.
func (r Roster) Name(id UserID) string {
	if i, ok := r.index[id]; ok {
		return r.members[i].Name
	}
	return string(id)
}

// Expense is an immutable record of one payment.
type Expense struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	PaidBy      UserID
	Split       Split
	Date        time.Time
	Category    string
	Notes       string
}

// SplitType reports the strategy of the expense, empty when Split is nil.
func (e Expense) SplitType() SplitType {
	if e.Split == nil {
		return ""
	}
	return e.Split.Kind()
}

// Participants returns the users named by the split: sharers for equal,
// share holders for custom and beneficiaries for full payment.
func (e Expense) Participants() []UserID {
	switch s := e.Split.(type) {
	case EqualSplit:
		return uniqueUsers(s.Participants)
	case CustomSplit:
		return s.users()
	case FullPaymentSplit:
		return uniqueUsers(s.Beneficiaries)
	default:
		return nil
	}
}

// IsLoan reports whether the payer covered others in full.
func (e Expense) IsLoan() bool {
	_, ok := e.Split.(FullPaymentSplit)
	return ok
}

// OwedToPayer is the sum of what other users owe the payer for this expense.
func (e Expense) OwedToPayer() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range ResolveSplit(e) {
		total = total.Add(amt)
	}
	return total
}
