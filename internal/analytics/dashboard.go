package analytics

import (
	"time"

	"finboard/internal/core"
)

// Dashboard is the derived snapshot rendered by the UI. Period figures follow
// the filtered list; category, month and balance figures cover all expenses.
type Dashboard struct {
	Criteria        Criteria             `json:"criteria"`
	Expenses        []core.Expense       `json:"expenses"`
	Total           core.Money           `json:"total"`
	Budget          core.Money           `json:"budget"`
	RemainingBudget core.Money           `json:"remainingBudget"`
	ByDay           []core.DayAmount     `json:"byDay"`
	Recent          []core.Expense       `json:"recentActivity"`
	ByCategory      []core.CategoryShare `json:"byCategory"`
	ByMonth         []core.MonthAmount   `json:"byMonth"`
	TotalAllTime    core.Money           `json:"totalAllTime"`
	TotalIncome     core.Money           `json:"totalIncome"`
	Balance         core.Money           `json:"balance"`
}

// Summarize recomputes every aggregate from the canonical lists.
func Summarize(all []core.Expense, totalIncome core.Money, c Criteria, budget core.Money, now time.Time) Dashboard {
	filtered := Filter(all, c, now)
	total := Total(filtered)
	allTime := Total(all)
	c.Range = ParseDateRange(string(c.Range))
	return Dashboard{
		Criteria:        c,
		Expenses:        filtered,
		Total:           total,
		Budget:          budget,
		RemainingBudget: RemainingBudget(total, budget),
		ByDay:           ByDay(filtered),
		Recent:          RecentActivity(filtered, DefaultRecent),
		ByCategory:      CategoryShare(ByCategory(all)),
		ByMonth:         ByMonth(all),
		TotalAllTime:    allTime,
		TotalIncome:     totalIncome,
		Balance:         Balance(totalIncome, allTime),
	}
}
