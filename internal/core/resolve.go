package core

import "github.com/shopspring/decimal"

// ResolveSplit returns what each user owes the payer for one expense.
//
// The payer never appears in the result. Malformed expenses (nil split,
// no payer, non-positive amount, no participants) resolve to an empty map
// instead of failing, so a single bad record has no effect on a fold.
func ResolveSplit(e Expense) map[UserID]decimal.Decimal {
	out := make(map[UserID]decimal.Decimal)
	if e.PaidBy == "" || !e.Amount.IsPositive() {
		return out
	}

	switch s := e.Split.(type) {
	case EqualSplit:
		divideAmong(out, e.Amount, e.PaidBy, uniqueUsers(s.Participants))
	case FullPaymentSplit:
		divideAmong(out, e.Amount, e.PaidBy, uniqueUsers(s.Beneficiaries))
	case CustomSplit:
		for u, share := range s.Shares {
			if u == "" || u == e.PaidBy || !share.IsPositive() {
				continue
			}
			out[u] = share
		}
	}
	return out
}

// divideAmong credits amount/len(users) to every user except the payer.
// The payer still counts towards the divisor.
func divideAmong(out map[UserID]decimal.Decimal, amount decimal.Decimal, payer UserID, users []UserID) {
	if len(users) == 0 {
		return
	}
	share := amount.Div(decimal.NewFromInt(int64(len(users))))
	for _, u := range users {
		if u == payer {
			continue
		}
		out[u] = share
	}
}
