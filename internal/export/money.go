package export

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"flatshare/internal/core"
)

// FormatMoney renders amount in currency with its symbol and grouping,
// "₹1,234.50" for INR. Unknown currency codes fall back to the code
// followed by the plain amount.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return currency + " " + core.FormatAmount(amount)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
