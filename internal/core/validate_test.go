package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateExpense(t *testing.T) {
	base := func(s Split) Expense {
		return Expense{Amount: dec("300"), PaidBy: "A", Date: day, Split: s}
	}

	tests := []struct {
		name string
		exp  Expense
		want []error
	}{
		{"valid equal", base(EqualSplit{Participants: []UserID{"A", "B", "C"}}), nil},
		{"valid loan", base(FullPaymentSplit{Beneficiaries: []UserID{"B"}}), nil},
		{"valid custom", base(CustomSplit{Shares: map[UserID]decimal.Decimal{"A": dec("100"), "B": dec("100"), "C": dec("100")}}), nil},
		{"custom within tolerance", base(CustomSplit{Shares: map[UserID]decimal.Decimal{"B": dec("150"), "C": dec("149.99")}}), nil},
		{"custom off by more than tolerance", base(CustomSplit{Shares: map[UserID]decimal.Decimal{"B": dec("150"), "C": dec("149.98")}}), []error{ErrCustomSplitMismatch}},
		{"custom negative share", base(CustomSplit{Shares: map[UserID]decimal.Decimal{"B": dec("310"), "C": dec("-10")}}), []error{ErrNegativeShare}},
		{"custom all zero", base(CustomSplit{Shares: map[UserID]decimal.Decimal{"B": dec("0")}}), []error{ErrNoParticipants}},
		{"empty participants", base(EqualSplit{}), []error{ErrNoParticipants}},
		{"unknown participant", base(EqualSplit{Participants: []UserID{"A", "Z"}}), []error{ErrUnknownUser}},
		{"payer is beneficiary", base(FullPaymentSplit{Beneficiaries: []UserID{"A", "B"}}), []error{ErrPayerIsBeneficiary}},
		{"missing split", base(nil), []error{ErrMissingSplit}},
		{
			name: "everything wrong",
			exp:  Expense{Amount: dec("0"), PaidBy: "Z", Split: EqualSplit{}},
			want: []error{ErrInvalidAmount, ErrUnknownUser, ErrMissingDate, ErrNoParticipants},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpense(tt.exp, abc)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error")
			}
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Fatalf("expected %v in %v", w, err)
				}
			}
		})
	}
}
