package http

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
	"flatshare/internal/export"
)

// moneyView carries both the exact amount and a display string.
type moneyView struct {
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func (s *Server) money(d decimal.Decimal) moneyView {
	return moneyView{Amount: core.FormatAmount(d), Display: export.FormatMoney(d, s.currency)}
}

type expenseView struct {
	ID           string            `json:"id"`
	Description  string            `json:"description"`
	Amount       moneyView         `json:"amount"`
	PaidBy       string            `json:"paid_by"`
	PaidByName   string            `json:"paid_by_name"`
	SplitType    string            `json:"split_type"`
	Participants []string          `json:"participants"`
	Shares       map[string]string `json:"shares,omitempty"`
	Date         time.Time         `json:"date"`
	Category     string            `json:"category,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	OwedToPayer  moneyView         `json:"owed_to_payer"`
}

func (s *Server) expenseView(e core.Expense) expenseView {
	kind, users, shares := core.SplitParts(e.Split)
	v := expenseView{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       s.money(e.Amount),
		PaidBy:       string(e.PaidBy),
		PaidByName:   s.roster.Name(e.PaidBy),
		SplitType:    string(kind),
		Participants: make([]string, 0, len(users)),
		Date:         e.Date.In(s.loc),
		Category:     e.Category,
		Notes:        e.Notes,
		OwedToPayer:  s.money(e.OwedToPayer()),
	}
	for _, u := range users {
		v.Participants = append(v.Participants, string(u))
	}
	if len(shares) > 0 {
		v.Shares = make(map[string]string, len(shares))
		for u, amt := range shares {
			v.Shares[string(u)] = core.FormatAmount(amt)
		}
	}
	return v
}

func (s *Server) expenseViews(expenses []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, s.expenseView(e))
	}
	return out
}

type debtView struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Amount moneyView `json:"amount"`
}

type balanceView struct {
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Owes        []debtView `json:"owes"`
	OwedBy      []debtView `json:"owed_by"`
	TotalOwes   moneyView  `json:"total_owes"`
	TotalOwedBy moneyView  `json:"total_owed_by"`
	Net         moneyView  `json:"net"`
}

// balanceViews lists balances in roster order with counterparties sorted
// by id.
func (s *Server) balanceViews(sheet core.BalanceSheet) []balanceView {
	out := make([]balanceView, 0, len(sheet))
	for _, id := range s.roster.IDs() {
		b, ok := sheet[id]
		if !ok {
			continue
		}
		out = append(out, balanceView{
			UserID:      string(id),
			Name:        s.roster.Name(id),
			Owes:        s.debts(b.Owes),
			OwedBy:      s.debts(b.OwedBy),
			TotalOwes:   s.money(b.TotalOwes()),
			TotalOwedBy: s.money(b.TotalOwedBy()),
			Net:         s.money(b.Net),
		})
	}
	return out
}

func (s *Server) debts(m map[core.UserID]decimal.Decimal) []debtView {
	ids := make([]core.UserID, 0, len(m))
	for id, amt := range m {
		if amt.IsPositive() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]debtView, 0, len(ids))
	for _, id := range ids {
		out = append(out, debtView{UserID: string(id), Name: s.roster.Name(id), Amount: s.money(m[id])})
	}
	return out
}

type periodView struct {
	Key   string    `json:"key"`
	Total moneyView `json:"total"`
	Count int       `json:"count"`
}

func (s *Server) periodViews(periods []core.Period) []periodView {
	out := make([]periodView, 0, len(periods))
	for _, p := range periods {
		out = append(out, periodView{Key: p.Key, Total: s.money(p.Total), Count: p.Count})
	}
	return out
}

type itemView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   string    `json:"quantity,omitempty"`
	Completed  bool      `json:"completed"`
	AddedBy    string    `json:"added_by"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Priority   string    `json:"priority"`
	Notes      string    `json:"notes,omitempty"`
	Date       time.Time `json:"date"`
}

func (s *Server) itemView(item core.ShoppingItem) itemView {
	return itemView{
		ID:         item.ID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		Completed:  item.Completed,
		AddedBy:    string(item.AddedBy),
		AssignedTo: string(item.AssignedTo),
		Priority:   string(item.Priority),
		Notes:      item.Notes,
		Date:       item.Date.In(s.loc),
	}
}
