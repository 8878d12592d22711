package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

var abc = MustRoster("A", "B", "C")

func assertNet(t *testing.T, sheet BalanceSheet, want map[UserID]string) {
	t.Helper()
	for u, w := range want {
		b, ok := sheet[u]
		if !ok {
			t.Fatalf("missing balance for %s", u)
		}
		if !b.Net.Equal(dec(w)) {
			t.Fatalf("net[%s] = %s, want %s", u, b.Net, w)
		}
	}
}

func mixedLedger() []Expense {
	return []Expense{
		{ID: "1", Amount: dec("300"), PaidBy: "A", Date: day, Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}},
		{ID: "2", Amount: dec("100"), PaidBy: "B", Date: day, Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}},
		{ID: "3", Amount: dec("75.50"), PaidBy: "C", Date: day, Split: CustomSplit{Shares: map[UserID]decimal.Decimal{
			"A": dec("25.50"), "B": dec("40"), "C": dec("10"),
		}}},
		{ID: "4", Amount: dec("200"), PaidBy: "A", Date: day, Split: FullPaymentSplit{Beneficiaries: []UserID{"B", "C"}}},
		{ID: "5", Amount: dec("10"), PaidBy: "B", Date: day, Split: FullPaymentSplit{Beneficiaries: []UserID{"A"}}},
		{ID: "6", Amount: dec("33.33"), PaidBy: "C", Date: day, Split: EqualSplit{Participants: []UserID{"A", "B"}}},
	}
}

func TestComputeBalancesExamples(t *testing.T) {
	tests := []struct {
		name string
		exp  Expense
		want map[UserID]string
	}{
		{
			name: "equal",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}},
			want: map[UserID]string{"A": "200", "B": "-100", "C": "-100"},
		},
		{
			name: "custom",
			exp: Expense{Amount: dec("300"), PaidBy: "A", Split: CustomSplit{Shares: map[UserID]decimal.Decimal{
				"A": dec("100"), "B": dec("100"), "C": dec("100"),
			}}},
			want: map[UserID]string{"A": "200", "B": "-100", "C": "-100"},
		},
		{
			name: "full payment",
			exp:  Expense{Amount: dec("200"), PaidBy: "A", Split: FullPaymentSplit{Beneficiaries: []UserID{"B", "C"}}},
			want: map[UserID]string{"A": "200", "B": "-100", "C": "-100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := ComputeBalances([]Expense{tt.exp}, abc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertNet(t, sheet, tt.want)
			if !sheet["B"].Owes["A"].Equal(dec("100")) || !sheet["A"].OwedBy["B"].Equal(dec("100")) {
				t.Fatalf("pairwise tables not mirrored: %+v", sheet)
			}
		})
	}
}

func TestComputeBalancesRosterCompleteness(t *testing.T) {
	roster := MustRoster("A", "B", "C", "D")
	sheet, err := ComputeBalances(mixedLedger(), roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sheet) != 4 {
		t.Fatalf("expected 4 balances, got %d", len(sheet))
	}
	d := sheet["D"]
	if !d.Net.IsZero() || len(d.Owes) != 0 || len(d.OwedBy) != 0 {
		t.Fatalf("D should be untouched: %+v", d)
	}

	empty, err := ComputeBalances(nil, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range roster.IDs() {
		if b, ok := empty[id]; !ok || !b.Net.IsZero() {
			t.Fatalf("expected zero balance for %s", id)
		}
	}
}

func TestComputeBalancesCommutative(t *testing.T) {
	ledger := mixedLedger()
	want, err := ComputeBalances(ledger, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]Expense, len(ledger))
		copy(shuffled, ledger)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := ComputeBalances(shuffled, abc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(want) {
			t.Fatalf("permutation %d changed the result", i)
		}
	}
}

func TestComputeBalancesZeroSum(t *testing.T) {
	ledgers := [][]Expense{
		nil,
		mixedLedger(),
		{{Amount: dec("100"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}}},
		{{Amount: dec("0.01"), PaidBy: "C", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}}},
	}
	for i, l := range ledgers {
		sheet, err := ComputeBalances(l, abc)
		if err != nil {
			t.Fatalf("ledger %d: %v", i, err)
		}
		if !sheet.NetTotal().IsZero() {
			t.Fatalf("ledger %d: nets sum to %s", i, sheet.NetTotal())
		}
	}
}

func TestComputeBalancesNoSelfDebt(t *testing.T) {
	sheet, err := ComputeBalances(mixedLedger(), abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for id, b := range sheet {
		if _, ok := b.Owes[id]; ok {
			t.Fatalf("%s owes self", id)
		}
		if _, ok := b.OwedBy[id]; ok {
			t.Fatalf("%s owed by self", id)
		}
	}
}

func TestComputeBalancesIdempotent(t *testing.T) {
	ledger := mixedLedger()
	first, err := ComputeBalances(ledger, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeBalances(ledger, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("recomputation differs")
	}
}

func TestComputeBalancesDegenerateRecords(t *testing.T) {
	good := Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}}
	ledger := []Expense{
		good,
		{Amount: dec("90"), PaidBy: "B", Split: EqualSplit{}},
		{Amount: dec("-50"), PaidBy: "B", Split: EqualSplit{Participants: []UserID{"A", "B"}}},
		{Amount: dec("0"), PaidBy: "C", Split: FullPaymentSplit{Beneficiaries: []UserID{"A"}}},
		{Amount: dec("40"), PaidBy: "C"},
		{Amount: dec("40"), PaidBy: "Z", Split: EqualSplit{Participants: []UserID{"A", "B"}}},
	}

	sheet, err := ComputeBalances(ledger, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := ComputeBalances([]Expense{good}, abc)
	if !sheet.Equal(want) {
		t.Fatalf("degenerate records changed balances")
	}
}

func TestComputeBalancesUnknownDebtorIgnored(t *testing.T) {
	e := Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "X"}}}
	sheet, err := ComputeBalances([]Expense{e}, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// X still counts towards the divisor, but cannot be debited.
	assertNet(t, sheet, map[UserID]string{"A": "100", "B": "-100", "C": "0"})
	if _, ok := sheet["X"]; ok {
		t.Fatalf("unknown users must not get a balance")
	}
}

func TestComputeBalancesEmptyRoster(t *testing.T) {
	if _, err := ComputeBalances(mixedLedger(), Roster{}); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("expected ErrEmptyRoster, got %v", err)
	}
}

func TestBalanceNetWith(t *testing.T) {
	ledger := []Expense{
		{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}},
		{Amount: dec("60"), PaidBy: "B", Split: FullPaymentSplit{Beneficiaries: []UserID{"A"}}},
	}
	sheet, err := ComputeBalances(ledger, abc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sheet["A"].NetWith("B"); !got.Equal(dec("40")) {
		t.Fatalf("A vs B = %s, want 40", got)
	}
	if got := sheet["B"].NetWith("A"); !got.Equal(dec("-40")) {
		t.Fatalf("B vs A = %s, want -40", got)
	}
	if !sheet["A"].TotalOwedBy().Equal(dec("200")) || !sheet["A"].TotalOwes().Equal(dec("60")) {
		t.Fatalf("totals wrong: %+v", sheet["A"])
	}
}
