// Package gamification implements the daily savings streak rule and the
// badge projection derived from it.
package gamification

import (
	"finboard/internal/core"
)

const (
	// PointsPerDay is awarded each day the streak is credited.
	PointsPerDay = 10

	// StreakWeight converts streak days into badge score.
	StreakWeight = 5
)

// DefaultBudget is the spending threshold gating streak continuation.
var DefaultBudget = core.MoneyFromInt(1000)

// Badge levels.
const (
	BadgeBeginner = "Beginner"
	BadgeSaver    = "Saver"
	BadgePro      = "Pro Saver"
)

// Evaluate applies one step of the streak rule for today.
//
// Spending over budget clears the streak and its credit date while keeping
// points. Otherwise the streak is credited at most once per calendar day.
func Evaluate(s core.GamificationState, totalSpend, budget core.Money, today core.Date) core.GamificationState {
	if totalSpend.Cmp(budget) > 0 {
		s.Streak = 0
		s.LastStreakDate = core.Date{}
		return s
	}
	if s.StreakCredited(today) {
		return s
	}
	if s.LastStreakDate.IsZero() {
		s.Streak = 1
	} else {
		s.Streak++
	}
	s.LastStreakDate = today
	s.Points += PointsPerDay
	return s
}

// Score is points plus weighted streak.
func Score(points, streak int) int {
	return points + streak*StreakWeight
}

// Badge maps a score to its level.
func Badge(points, streak int) string {
	switch score := Score(points, streak); {
	case score >= 100:
		return BadgePro
	case score >= 30:
		return BadgeSaver
	default:
		return BadgeBeginner
	}
}

// Summary is the read-only projection shown by the UI.
type Summary struct {
	Points         int    `json:"points"`
	Streak         int    `json:"streak"`
	LastStreakDate string `json:"lastStreakDate,omitempty"`
	Score          int    `json:"score"`
	Badge          string `json:"badge"`
}

// Summarize projects a state into its display summary.
func Summarize(s core.GamificationState) Summary {
	return Summary{
		Points:         s.Points,
		Streak:         s.Streak,
		LastStreakDate: s.LastStreakDate.String(),
		Score:          Score(s.Points, s.Streak),
		Badge:          Badge(s.Points, s.Streak),
	}
}
