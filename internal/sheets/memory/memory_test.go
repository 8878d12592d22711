package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
)

func expense(id string) core.Expense {
	return core.Expense{
		ID:          id,
		Description: "rent " + id,
		Amount:      decimal.NewFromInt(300),
		PaidBy:      "sunny",
		Split:       core.EqualSplit{Participants: []core.UserID{"sunny", "sachin"}},
		Date:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_AppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(core.MustRoster("sunny", "sachin"), nil)

	ref1, err := s.Append(ctx, expense("a"))
	if err != nil {
		t.Fatal(err)
	}
	ref2, _ := s.Append(ctx, expense("a"))
	if ref1 != ref2 || len(s.Rows()) != 1 {
		t.Errorf("duplicate append: refs %s %s, rows %d", ref1, ref2, len(s.Rows()))
	}

	row := s.Rows()[0]
	if row[0] != "2025-04-01" || row[2] != "300.00" || row[4] != "equal" || row[7] != "a" {
		t.Errorf("row = %v", row)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New(core.MustRoster("sunny", "sachin"), nil)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Append(ctx, expense(id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	ids, _ := s.MirroredIDs(ctx)
	if _, ok := ids["b"]; ok || len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}
	if err := s.Delete(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0][7] != "a" {
		t.Errorf("rows = %v", rows)
	}
}
