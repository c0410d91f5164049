package analytics

import (
	"sort"

	"finboard/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// UnknownDay buckets expenses without a date.
	UnknownDay = "unknown"

	// DefaultRecent is the number of entries RecentActivity returns when n <= 0.
	DefaultRecent = 3
)

// Total sums the amounts. Invalid amounts decode to zero upstream.
func Total(expenses []core.Expense) core.Money {
	total := core.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ByDay groups by calendar date in first-seen order.
func ByDay(expenses []core.Expense) []core.DayAmount {
	idx := make(map[string]int)
	var out []core.DayAmount
	for _, e := range expenses {
		key := UnknownDay
		if !e.Date.IsZero() {
			key = e.Date.String()
		}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, core.DayAmount{Day: key, Amount: core.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// ByCategory groups by category in first-seen order; a missing category
// counts as Other.
func ByCategory(expenses []core.Expense) []core.CategoryAmount {
	idx := make(map[core.Category]int)
	var out []core.CategoryAmount
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = core.Other
		}
		i, ok := idx[cat]
		if !ok {
			i = len(out)
			idx[cat] = i
			out = append(out, core.CategoryAmount{Category: cat, Amount: core.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// ByMonth groups dated expenses by YYYY-MM, sorted ascending. Undated
// expenses are skipped.
func ByMonth(expenses []core.Expense) []core.MonthAmount {
	sums := make(map[string]core.Money)
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		key := e.Date.YearMonth()
		sums[key] = sums[key].Add(e.Amount)
	}
	out := make([]core.MonthAmount, 0, len(sums))
	for k, v := range sums {
		out = append(out, core.MonthAmount{YearMonth: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

// CategoryShare adds each category's percentage of the aggregate total,
// rounded to one decimal. All shares are 0 when the total is 0.
func CategoryShare(agg []core.CategoryAmount) []core.CategoryShare {
	total := core.Zero
	for _, a := range agg {
		total = total.Add(a.Amount)
	}
	out := make([]core.CategoryShare, len(agg))
	for i, a := range agg {
		pct := 0.0
		if !total.IsZero() {
			pct = a.Amount.Div(total.Decimal).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		out[i] = core.CategoryShare{Category: a.Category, Amount: a.Amount, PercentOfTotal: pct}
	}
	return out
}

// RecentActivity returns the n most recent expenses, newest first. Ties keep
// their original order and undated expenses sort last.
func RecentActivity(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 {
		n = DefaultRecent
	}
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// RemainingBudget is max(budget - total, 0).
func RemainingBudget(total, budget core.Money) core.Money {
	return budget.Sub(total).NonNegative()
}

// Balance is income minus all-time spending; it may be negative.
func Balance(totalIncome, totalExpenses core.Money) core.Money {
	return totalIncome.Sub(totalExpenses)
}
