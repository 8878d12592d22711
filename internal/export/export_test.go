package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
)

func TestWriteCSV(t *testing.T) {
	roster, err := core.ParseRoster("sachin:Sachin,sunny:Sunny")
	if err != nil {
		t.Fatal(err)
	}
	expenses := []core.Expense{
		{
			ID:          "e1",
			Description: "Groceries, weekly",
			Amount:      decimal.RequireFromString("90"),
			PaidBy:      "sachin",
			Split:       core.EqualSplit{Participants: []core.UserID{"sachin", "sunny"}},
			Date:        time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC),
			Category:    "food",
		},
		{
			ID:          "e2",
			Description: "Loan",
			Amount:      decimal.RequireFromString("25.5"),
			PaidBy:      "sunny",
			Split:       core.FullPaymentSplit{Beneficiaries: []core.UserID{"sachin"}},
			Date:        time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, expenses, roster, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want := []string{"2025-03-04", "18:30", "Groceries, weekly", "90.00", "Sachin", "food", "Equal", "45.00"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("row 1 col %s = %q, want %q", Header[i], rows[1][i], v)
		}
	}
	if rows[2][6] != "Full Payment" || rows[2][7] != "25.50" || rows[2][4] != "Sunny" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteCSV_Location(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	e := core.Expense{
		ID:     "e1",
		Amount: decimal.NewFromInt(10),
		PaidBy: "ghost",
		Date:   time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []core.Expense{e}, core.MustRoster("sachin"), loc); err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if rows[1][0] != "2025-03-05" || rows[1][1] != "01:30" {
		t.Errorf("date/time = %s %s, want 2025-03-05 01:30", rows[1][0], rows[1][1])
	}
	if rows[1][4] != "ghost" {
		t.Errorf("unknown payer should print the id, got %q", rows[1][4])
	}
	if rows[1][6] != "Unknown" || rows[1][7] != "0.00" {
		t.Errorf("nil split row = %v", rows[1])
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0.005", "USD", "$0.01"},
		{"12", "XXQ", "XXQ 12.00"},
	}
	for _, tt := range tests {
		t.Run(tt.currency+"_"+tt.amount, func(t *testing.T) {
			got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("FormatMoney(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)); got != "expenses-2025-01-02.csv" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestBalancesMarkdown(t *testing.T) {
	roster, _ := core.ParseRoster("sachin:Sachin,sunny:Sunny,adarsh:Adarsh")
	expenses := []core.Expense{{
		ID:     "e1",
		Amount: decimal.RequireFromString("90"),
		PaidBy: "sachin",
		Split:  core.EqualSplit{Participants: []core.UserID{"sachin", "sunny", "adarsh"}},
	}}
	sheet, err := core.ComputeBalances(expenses, roster)
	if err != nil {
		t.Fatal(err)
	}

	md := BalancesMarkdown(sheet, roster, "USD")
	for _, want := range []string{
		"| Sachin | $0.00 | $60.00 | $60.00 |",
		"- Adarsh owes Sachin **$30.00**",
		"- Sunny owes Sachin **$30.00**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Index(md, "Adarsh owes") > strings.Index(md, "Sunny owes") {
		t.Error("equal debts should be ordered by debtor id")
	}

	settled, _ := core.ComputeBalances(nil, roster)
	if md := BalancesMarkdown(settled, roster, "USD"); !strings.Contains(md, "Everyone is settled up.") {
		t.Errorf("empty ledger markdown = %s", md)
	}
}

func TestPeriodsMarkdown(t *testing.T) {
	md := PeriodsMarkdown("Monthly", []core.Period{
		{Key: "2025-03", Total: decimal.RequireFromString("12.5"), Count: 2},
	}, "USD")
	if !strings.Contains(md, "| 2025-03 | 2 | $12.50 |") {
		t.Errorf("markdown = %s", md)
	}
	if md := PeriodsMarkdown("Monthly", nil, "USD"); !strings.Contains(md, "No expenses.") {
		t.Errorf("empty markdown = %s", md)
	}
}
