package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MonthLayout = "2006-01"
	DayLayout   = "2006-01-02"
)

// Bucket is an additive total over a group of expenses.
type Bucket struct {
	Total decimal.Decimal
	Count int
}

func (b Bucket) add(amount decimal.Decimal) Bucket {
	return Bucket{Total: b.Total.Add(amount), Count: b.Count + 1}
}

// GroupByMonth buckets expenses by "YYYY-MM" in UTC.
func GroupByMonth(expenses []Expense) map[string]Bucket {
	return GroupByMonthIn(expenses, time.UTC)
}

// GroupByDay buckets expenses by "YYYY-MM-DD" in UTC.
func GroupByDay(expenses []Expense) map[string]Bucket {
	return GroupByDayIn(expenses, time.UTC)
}

// GroupByMonthIn buckets expenses by calendar month in loc.
func GroupByMonthIn(expenses []Expense, loc *time.Location) map[string]Bucket {
	return groupBy(expenses, loc, MonthLayout)
}

// GroupByDayIn buckets expenses by calendar day in loc.
func GroupByDayIn(expenses []Expense, loc *time.Location) map[string]Bucket {
	return groupBy(expenses, loc, DayLayout)
}

// groupBy skips expenses without a positive amount, matching the fold.
func groupBy(expenses []Expense, loc *time.Location, layout string) map[string]Bucket {
	if loc == nil {
		loc = time.UTC
	}
	out := make(map[string]Bucket)
	for _, e := range expenses {
		if !e.Amount.IsPositive() || e.Date.IsZero() {
			continue
		}
		key := e.Date.In(loc).Format(layout)
		out[key] = out[key].add(e.Amount)
	}
	return out
}

// SortedKeys returns bucket keys in ascending order.
func SortedKeys(groups map[string]Bucket) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total sums the positive amounts of expenses.
func Total(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Amount.IsPositive() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Filter selects expenses. Zero fields match everything. From is
// inclusive and To is exclusive.
type Filter struct {
	From     time.Time
	To       time.Time
	PaidBy   UserID
	Category string
}

func (f Filter) Match(e Expense) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Date.Before(f.To) {
		return false
	}
	if f.PaidBy != "" && e.PaidBy != f.PaidBy {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	return true
}

// Apply returns the matching expenses in their original order.
func (f Filter) Apply(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// MonthRange returns the [start, end) interval of a "YYYY-MM" month in loc.
func MonthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(MonthLayout, month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

// DayRange returns the [start, end) interval of a "YYYY-MM-DD" day in loc.
func DayRange(day string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// Period is one row of a grouped report.
type Period struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Periods flattens a grouping into rows. When newestFirst is set the
// rows run from the latest key backwards.
func Periods(groups map[string]Bucket, newestFirst bool) []Period {
	keys := SortedKeys(groups)
	out := make([]Period, 0, len(keys))
	for _, k := range keys {
		b := groups[k]
		out = append(out, Period{Key: k, Total: b.Total, Count: b.Count})
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// DailyInMonth returns per-day rows for one "YYYY-MM" month, oldest first.
func DailyInMonth(expenses []Expense, month string, loc *time.Location) ([]Period, error) {
	start, end, err := MonthRange(month, loc)
	if err != nil {
		return nil, err
	}
	inMonth := Filter{From: start, To: end}.Apply(expenses)
	return Periods(GroupByDayIn(inMonth, loc), false), nil
}

// Overview is the dashboard summary.
type Overview struct {
	Total     decimal.Decimal
	Count     int
	PerPerson decimal.Decimal
	ThisMonth decimal.Decimal
	Today     decimal.Decimal
	Recent    []Expense
}

// RecentLimit is how many expenses an overview lists.
const RecentLimit = 5

// ComputeOverview summarizes expenses at instant now. PerPerson divides
// the grand total by the roster size.
func ComputeOverview(expenses []Expense, roster Roster, now time.Time, loc *time.Location) Overview {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	monthKey := now.Format(MonthLayout)
	dayKey := now.Format(DayLayout)

	ov := Overview{Total: Total(expenses), PerPerson: decimal.Zero}
	byMonth := GroupByMonthIn(expenses, loc)
	byDay := GroupByDayIn(expenses, loc)
	ov.ThisMonth = byMonth[monthKey].Total
	ov.Today = byDay[dayKey].Total
	for _, b := range byMonth {
		ov.Count += b.Count
	}
	if roster.Len() > 0 {
		ov.PerPerson = ov.Total.Div(decimal.NewFromInt(int64(roster.Len())))
	}

	recent := make([]Expense, len(expenses))
	copy(recent, expenses)
	SortNewestFirst(recent)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	ov.Recent = recent
	return ov
}

// SortNewestFirst orders expenses by date descending, then by id, so two
// calls on the same data always agree.
func SortNewestFirst(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].ID < expenses[j].ID
	})
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(expenses []Expense) []string {
	seen := make(map[string]struct{})
	for _, e := range expenses {
		c := strings.TrimSpace(e.Category)
		if c == "" {
			continue
		}
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
