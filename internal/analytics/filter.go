// Package analytics derives filtered views and aggregates from the canonical
// expense list. Every function is pure: inputs are never mutated and results
// are always freshly allocated.
package analytics

import (
	"strings"
	"time"

	"finboard/internal/core"
)

// DateRange selects expenses dated on or after the start of the current
// calendar period.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"

	// AllCategories disables the category filter.
	AllCategories = "all"
)

// Criteria are the filter inputs. Empty fields behave like "all".
type Criteria struct {
	Range    DateRange `json:"range"`
	Category string    `json:"category"`
	Query    string    `json:"query"`
}

// ParseDateRange maps user input to a DateRange, defaulting to RangeAll.
func ParseDateRange(s string) DateRange {
	switch DateRange(strings.ToLower(strings.TrimSpace(s))) {
	case RangeWeek:
		return RangeWeek
	case RangeMonth:
		return RangeMonth
	case RangeYear:
		return RangeYear
	default:
		return RangeAll
	}
}

// Key identifies the criteria for caching.
func (c Criteria) Key() string {
	return string(ParseDateRange(string(c.Range))) + "|" +
		strings.ToLower(strings.TrimSpace(c.Category)) + "|" +
		strings.ToLower(strings.TrimSpace(c.Query))
}

// RangeStart returns the inclusive lower bound for r relative to now, and
// false for RangeAll. Weeks start on Sunday at local midnight.
func RangeStart(r DateRange, now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch r {
	case RangeWeek:
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc), true
	case RangeMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case RangeYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// Filter applies the date range, category and free-text query as a
// conjunction over the full list.
func Filter(expenses []core.Expense, c Criteria, now time.Time) []core.Expense {
	start, byDate := RangeStart(ParseDateRange(string(c.Range)), now)
	category := strings.TrimSpace(c.Category)
	byCategory := category != "" && !strings.EqualFold(category, AllCategories)
	query := strings.ToLower(strings.TrimSpace(c.Query))

	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if byDate {
			if e.Date.IsZero() || e.Date.In(now.Location()).Before(start) {
				continue
			}
		}
		if byCategory && !e.Category.Matches(category) {
			continue
		}
		if query != "" && !matchesQuery(e, query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesQuery(e core.Expense, q string) bool {
	return strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(string(e.Category)), q) ||
		strings.Contains(e.Amount.String(), q)
}
