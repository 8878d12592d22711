package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func assertShares(t *testing.T, got map[UserID]decimal.Decimal, want map[UserID]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries %v, want %d %v", len(got), got, len(want), want)
	}
	for u, w := range want {
		v, ok := got[u]
		if !ok {
			t.Fatalf("missing entry for %s in %v", u, got)
		}
		if !v.Equal(dec(w)) {
			t.Fatalf("%s = %s, want %s", u, v, w)
		}
	}
}

func TestResolveSplit(t *testing.T) {
	tests := []struct {
		name string
		exp  Expense
		want map[UserID]string
	}{
		{
			name: "equal split with payer included",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}},
			want: map[UserID]string{"B": "100", "C": "100"},
		},
		{
			name: "equal split without payer",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"B", "C"}}},
			want: map[UserID]string{"B": "150", "C": "150"},
		},
		{
			name: "equal split duplicates count once",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "B", "C"}}},
			want: map[UserID]string{"B": "100", "C": "100"},
		},
		{
			name: "custom split drops payer share",
			exp: Expense{Amount: dec("300"), PaidBy: "A", Split: CustomSplit{Shares: map[UserID]decimal.Decimal{
				"A": dec("100"), "B": dec("100"), "C": dec("100"),
			}}},
			want: map[UserID]string{"B": "100", "C": "100"},
		},
		{
			name: "custom split ignores zero and negative shares",
			exp: Expense{Amount: dec("50"), PaidBy: "A", Split: CustomSplit{Shares: map[UserID]decimal.Decimal{
				"B": dec("50"), "C": dec("0"), "D": dec("-5"),
			}}},
			want: map[UserID]string{"B": "50"},
		},
		{
			name: "custom split mis-summed is used as-is",
			exp: Expense{Amount: dec("100"), PaidBy: "A", Split: CustomSplit{Shares: map[UserID]decimal.Decimal{
				"B": dec("80"), "C": dec("80"),
			}}},
			want: map[UserID]string{"B": "80", "C": "80"},
		},
		{
			name: "full payment loan",
			exp:  Expense{Amount: dec("200"), PaidBy: "A", Split: FullPaymentSplit{Beneficiaries: []UserID{"B", "C"}}},
			want: map[UserID]string{"B": "100", "C": "100"},
		},
		{
			name: "full payment listing payer absorbs their part",
			exp:  Expense{Amount: dec("200"), PaidBy: "A", Split: FullPaymentSplit{Beneficiaries: []UserID{"A", "B"}}},
			want: map[UserID]string{"B": "100"},
		},
		{
			name: "empty participants",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: EqualSplit{}},
			want: map[UserID]string{},
		},
		{
			name: "empty beneficiaries",
			exp:  Expense{Amount: dec("300"), PaidBy: "A", Split: FullPaymentSplit{}},
			want: map[UserID]string{},
		},
		{
			name: "zero amount",
			exp:  Expense{Amount: dec("0"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B"}}},
			want: map[UserID]string{},
		},
		{
			name: "negative amount",
			exp:  Expense{Amount: dec("-10"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B"}}},
			want: map[UserID]string{},
		},
		{
			name: "missing payer",
			exp:  Expense{Amount: dec("10"), Split: EqualSplit{Participants: []UserID{"A", "B"}}},
			want: map[UserID]string{},
		},
		{
			name: "nil split",
			exp:  Expense{Amount: dec("10"), PaidBy: "A"},
			want: map[UserID]string{},
		},
		{
			name: "payer alone",
			exp:  Expense{Amount: dec("10"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A"}}},
			want: map[UserID]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertShares(t, ResolveSplit(tt.exp), tt.want)
		})
	}
}

func TestResolveSplitUnevenDivision(t *testing.T) {
	e := Expense{Amount: dec("100"), PaidBy: "A", Split: EqualSplit{Participants: []UserID{"A", "B", "C"}}}
	got := ResolveSplit(e)
	if !got["B"].Equal(got["C"]) {
		t.Fatalf("shares differ: %s vs %s", got["B"], got["C"])
	}
	if got["B"].StringFixed(2) != "33.33" {
		t.Fatalf("share = %s", got["B"])
	}
}
