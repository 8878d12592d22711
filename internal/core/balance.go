package core

import (
	"github.com/shopspring/decimal"
)

// Balance is one user's position. Owes maps creditor to amount, OwedBy
// maps debtor to amount. Net is positive when the user is owed money.
type Balance struct {
	Owes   map[UserID]decimal.Decimal
	OwedBy map[UserID]decimal.Decimal
	Net    decimal.Decimal
}

// TotalOwes is the sum of Owes.
func (b Balance) TotalOwes() decimal.Decimal { return sum(b.Owes) }

// TotalOwedBy is the sum of OwedBy.
func (b Balance) TotalOwedBy() decimal.Decimal { return sum(b.OwedBy) }

// NetWith is the position against a single other user: positive when
// other owes this user more than the reverse.
func (b Balance) NetWith(other UserID) decimal.Decimal {
	return b.OwedBy[other].Sub(b.Owes[other])
}

// BalanceSheet holds a Balance for every roster member.
type BalanceSheet map[UserID]Balance

// ComputeBalances folds expenses into a balance sheet for roster.
//
// Every roster member gets an entry, even with no expenses. Users outside
// the roster are ignored on either side of a debt. Custom shares are taken
// as stored, without checking that they add up to the amount. The result
// does not depend on the order of expenses.
func ComputeBalances(expenses []Expense, roster Roster) (BalanceSheet, error) {
	if roster.IsEmpty() {
		return nil, ErrEmptyRoster
	}

	sheet := make(BalanceSheet, roster.Len())
	for _, id := range roster.IDs() {
		sheet[id] = Balance{
			Owes:   make(map[UserID]decimal.Decimal),
			OwedBy: make(map[UserID]decimal.Decimal),
		}
	}

	for _, e := range expenses {
		payer := e.PaidBy
		if !roster.Contains(payer) {
			continue
		}
		for debtor, amount := range ResolveSplit(e) {
			if debtor == payer || !amount.IsPositive() || !roster.Contains(debtor) {
				continue
			}
			d, p := sheet[debtor], sheet[payer]
			d.Owes[payer] = d.Owes[payer].Add(amount)
			p.OwedBy[debtor] = p.OwedBy[debtor].Add(amount)
		}
	}

	for id, b := range sheet {
		b.Net = b.TotalOwedBy().Sub(b.TotalOwes())
		sheet[id] = b
	}
	return sheet, nil
}

// NetTotal sums Net over the sheet. It is zero for any sheet produced by
// ComputeBalances.
func (s BalanceSheet) NetTotal() decimal.Decimal {
	total := decimal.Zero
	for _, b := range s {
		total = total.Add(b.Net)
	}
	return total
}

// Equal compares two sheets by value. Missing map entries count as zero.
func (s BalanceSheet) Equal(o BalanceSheet) bool {
	if len(s) != len(o) {
		return false
	}
	for id, a := range s {
		b, ok := o[id]
		if !ok || !a.Net.Equal(b.Net) {
			return false
		}
		if !sameAmounts(a.Owes, b.Owes) || !sameAmounts(a.OwedBy, b.OwedBy) {
			return false
		}
	}
	return true
}

func sameAmounts(a, b map[UserID]decimal.Decimal) bool {
	for k, v := range a {
		if !v.Equal(b[k]) {
			return false
		}
	}
	for k, v := range b {
		if !v.Equal(a[k]) {
			return false
		}
	}
	return true
}

func sum(m map[UserID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}
