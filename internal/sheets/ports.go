// Package sheets declares the spreadsheet mirror ports and the row layout
// shared by every implementation.
package sheets

import (
	"context"
	"time"

	"flatshare/internal/core"
)

// Ports for outbound adapters. Rows are keyed by expense id, kept in the
// last column.
type (
	// ExpenseWriter appends an expense row. Appending an id that is
	// already mirrored returns the existing row reference.
	ExpenseWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExpenseDeleter removes the row of an expense. Unknown ids are not
	// an error.
	ExpenseDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// IDLister reports the expense ids already present in the sheet.
	IDLister interface {
		MirroredIDs(ctx context.Context) (map[string]struct{}, error)
	}

	Mirror interface {
		ExpenseWriter
		ExpenseDeleter
		IDLister
	}
)

// Header names the mirrored columns, A to H.
var Header = []any{"Date", "Description", "Amount", "Paid By", "Split Type", "Category", "Notes", "ID"}

// IDColumn is the column letter holding the expense id.
const IDColumn = "H"

// Row renders e in Header order. Paid By uses the roster display name and
// the date is taken in loc.
func Row(e core.Expense, roster core.Roster, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	return []any{
		e.Date.In(loc).Format(core.DayLayout),
		e.Description,
		core.FormatAmount(e.Amount),
		roster.Name(e.PaidBy),
		string(e.SplitType()),
		e.Category,
		e.Notes,
		e.ID,
	}
}
