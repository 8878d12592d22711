// Package export writes the ledger in formats meant for people and
// spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"flatshare/internal/core"
)

// Header is the first CSV row.
var Header = []string{
	"Date", "Time", "Description", "Amount", "Paid By",
	"Category", "Split Type", "Owed To Payer",
}

// WriteCSV writes one row per expense in the given order. Dates and times
// are shown in loc; nil means UTC.
func WriteCSV(w io.Writer, expenses []core.Expense, roster core.Roster, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		if err := cw.Write(row(e, roster, loc)); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(e core.Expense, roster core.Roster, loc *time.Location) []string {
	d := e.Date.In(loc)
	return []string{
		d.Format(core.DayLayout),
		d.Format("15:04"),
		e.Description,
		core.FormatAmount(e.Amount),
		roster.Name(e.PaidBy),
		e.Category,
		splitLabel(e.SplitType()),
		core.FormatAmount(e.OwedToPayer()),
	}
}

func splitLabel(t core.SplitType) string {
	switch t {
	case core.SplitEqual:
		return "Equal"
	case core.SplitCustom:
		return "Custom"
	case core.SplitFullPayment:
		return "Full Payment"
	default:
		return "Unknown"
	}
}

// Filename is the suggested download name for an export taken at now.
func Filename(now time.Time) string {
	return "expenses-" + now.Format(core.DayLayout) + ".csv"
}
