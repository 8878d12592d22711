package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
)

// BalancesMarkdown renders a balance sheet as a markdown report: one net
// table, then the individual debts, largest first.
func BalancesMarkdown(sheet core.BalanceSheet, roster core.Roster, currency string) string {
	var b strings.Builder
	b.WriteString("# Balances\n\n")
	b.WriteString("| Member | Owes | Is owed | Net |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, id := range roster.IDs() {
		bal := sheet[id]
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", mdEscape(roster.Name(id)),
			FormatMoney(bal.TotalOwes(), currency),
			FormatMoney(bal.TotalOwedBy(), currency),
			FormatMoney(bal.Net, currency))
	}

	type debt struct {
		from, to core.UserID
		amount   decimal.Decimal
	}
	var debts []debt
	for _, from := range roster.IDs() {
		for to, amt := range sheet[from].Owes {
			if !amt.IsPositive() {
				continue
			}
			debts = append(debts, debt{from: from, to: to, amount: amt})
		}
	}
	b.WriteString("\n## Debts\n\n")
	if len(debts) == 0 {
		b.WriteString("Everyone is settled up.\n")
		return b.String()
	}
	sort.Slice(debts, func(i, j int) bool {
		if c := debts[i].amount.Cmp(debts[j].amount); c != 0 {
			return c > 0
		}
		if debts[i].from != debts[j].from {
			return debts[i].from < debts[j].from
		}
		return debts[i].to < debts[j].to
	})
	for _, d := range debts {
		fmt.Fprintf(&b, "- %s owes %s **%s**\n", mdEscape(roster.Name(d.from)), mdEscape(roster.Name(d.to)), FormatMoney(d.amount, currency))
	}
	return b.String()
}

// PeriodsMarkdown renders grouped totals under title.
func PeriodsMarkdown(title string, periods []core.Period, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", mdEscape(title))
	if len(periods) == 0 {
		b.WriteString("No expenses.\n")
		return b.String()
	}
	b.WriteString("| Period | Expenses | Total |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, p := range periods {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", p.Key, p.Count, FormatMoney(p.Total, currency))
	}
	return b.String()
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}
