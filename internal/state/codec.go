package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"finboard/internal/core"

	"github.com/shopspring/decimal"
)

// Persisted keys.
const (
	KeySavingsPoints          = "savingsPoints"
	KeySavingsStreak          = "savingsStreak"
	KeyLastStreakDate         = "lastStreakDate"
	KeyMonthlyEmergencyAmount = "monthlyEmergencyAmount"
	KeyEmergencySavings       = "emergencySavings"
	KeyEmergencyUsage         = "emergencyUsage"
	KeyIncomeEntries          = "incomeEntries"
)

// LoadGamification reads points, streak and last credit date.
func LoadGamification(ctx context.Context, s Store) (core.GamificationState, error) {
	var g core.GamificationState
	var err error
	if g.Points, err = getInt(ctx, s, KeySavingsPoints); err != nil {
		return g, err
	}
	if g.Streak, err = getInt(ctx, s, KeySavingsStreak); err != nil {
		return g, err
	}
	v, ok, err := s.Get(ctx, KeyLastStreakDate)
	if err != nil {
		return g, err
	}
	if ok {
		// An unreadable date counts as absent.
		g.LastStreakDate, _ = core.ParseDate(v)
	}
	return g, nil
}

// SaveGamification writes the state; an absent credit date removes the key.
func SaveGamification(ctx context.Context, s Store, g core.GamificationState) error {
	if err := s.Set(ctx, KeySavingsPoints, strconv.Itoa(g.Points)); err != nil {
		return err
	}
	if err := s.Set(ctx, KeySavingsStreak, strconv.Itoa(g.Streak)); err != nil {
		return err
	}
	if g.LastStreakDate.IsZero() {
		return s.Delete(ctx, KeyLastStreakDate)
	}
	return s.Set(ctx, KeyLastStreakDate, g.LastStreakDate.String())
}

// LoadEmergency reads the monthly target, cumulative savings and usage.
func LoadEmergency(ctx context.Context, s Store) (core.EmergencyFundState, error) {
	var e core.EmergencyFundState
	var err error
	if e.MonthlyTarget, err = getMoney(ctx, s, KeyMonthlyEmergencyAmount); err != nil {
		return e, err
	}
	if e.CumulativeSavings, err = getMoney(ctx, s, KeyEmergencySavings); err != nil {
		return e, err
	}
	if err := getJSON(ctx, s, KeyEmergencyUsage, &e.Usage); err != nil {
		return e, err
	}
	return e, nil
}

// SaveEmergency writes the whole emergency fund state.
func SaveEmergency(ctx context.Context, s Store, e core.EmergencyFundState) error {
	if err := s.Set(ctx, KeyMonthlyEmergencyAmount, e.MonthlyTarget.String()); err != nil {
		return err
	}
	if err := s.Set(ctx, KeyEmergencySavings, e.CumulativeSavings.String()); err != nil {
		return err
	}
	return setJSON(ctx, s, KeyEmergencyUsage, nonNil(e.Usage))
}

// LoadIncome reads the income entries.
func LoadIncome(ctx context.Context, s Store) ([]core.IncomeEntry, error) {
	var entries []core.IncomeEntry
	if err := getJSON(ctx, s, KeyIncomeEntries, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveIncome writes the income entries.
func SaveIncome(ctx context.Context, s Store, entries []core.IncomeEntry) error {
	return setJSON(ctx, s, KeyIncomeEntries, nonNil(entries))
}

func getInt(ctx context.Context, s Store, key string) (int, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func getMoney(ctx context.Context, s Store, key string) (core.Money, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return core.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return core.Zero, nil
	}
	return core.Money{Decimal: d}, nil
}

// getJSON treats a corrupt value like a missing one.
func getJSON(ctx context.Context, s Store, key string, dst any) error {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	_ = json.Unmarshal([]byte(v), dst)
	return nil
}

func setJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
