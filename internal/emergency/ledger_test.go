package emergency

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"finboard/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

func TestWithdrawOverBalanceFails(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	l.Contribute(core.MoneyFromInt(500))

	_, err := l.Withdraw("Car repair", core.MoneyFromInt(600), now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidWithdrawal))
	assert.Equal(t, "500", l.Remaining().String())
	assert.Empty(t, l.State().Usage)
}

func TestWithdrawWithinBalance(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	l.Contribute(core.MoneyFromInt(500))

	rec, err := l.Withdraw("  Medical ", core.MoneyFromInt(200), now)
	require.NoError(t, err)
	assert.Equal(t, "Medical", rec.Reason)
	assert.Equal(t, "2024-04-02", rec.Date.String())
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "300", l.Remaining().String())
	assert.Equal(t, "200", l.TotalUsed().String())
}

func TestWithdrawInvalidInputs(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	l.Contribute(core.MoneyFromInt(100))

	cases := []struct {
		reason string
		amount core.Money
	}{
		{"", core.MoneyFromInt(10)},
		{"   ", core.MoneyFromInt(10)},
		{"x", core.Zero},
		{"x", core.MoneyFromInt(-5)},
		{"x", core.NewMoney(100.01)},
	}
	for i, tc := range cases {
		_, err := l.Withdraw(tc.reason, tc.amount, now)
		assert.ErrorIs(t, err, core.ErrInvalidWithdrawal, "case %d", i)
	}

	// The full balance can be used.
	_, err := l.Withdraw("x", core.MoneyFromInt(100), now)
	require.NoError(t, err)
	assert.True(t, l.Remaining().IsZero())
}

func TestContributeClampsNegative(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	assert.True(t, l.Contribute(core.MoneyFromInt(-50)).IsZero())
	assert.True(t, l.State().CumulativeSavings.IsZero())

	assert.Equal(t, "75", l.Contribute(core.MoneyFromInt(75)).String())
	assert.Equal(t, "25", l.Contribute(core.MoneyFromInt(25)).String(), "returns the amount added, not the total")
	assert.Equal(t, "100", l.State().CumulativeSavings.String())
}

func TestRecentUsageNonPositiveLimit(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{CumulativeSavings: core.MoneyFromInt(100)})
	_, err := l.Withdraw("Car", core.MoneyFromInt(10), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Empty(t, l.RecentUsage(0))
	assert.NotPanics(t, func() { assert.Empty(t, l.RecentUsage(-3)) })
	assert.Len(t, l.RecentUsage(10), 1)
}

func TestMonthlyTarget(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	assert.False(t, l.ContributeMonthly())

	require.NoError(t, l.SetMonthlyTarget(core.MoneyFromInt(250)))
	assert.True(t, l.State().CumulativeSavings.IsZero(), "setting the target must not move money")

	assert.True(t, l.ContributeMonthly())
	assert.True(t, l.ContributeMonthly())
	assert.Equal(t, "500", l.State().CumulativeSavings.String())

	assert.ErrorIs(t, l.SetMonthlyTarget(core.MoneyFromInt(-1)), core.ErrInvalidTarget)
}

func TestRemainingFlooredAtZero(t *testing.T) {
	// Persisted state can be inconsistent, e.g. edited by hand.
	l := NewLedger(core.EmergencyFundState{
		CumulativeSavings: core.MoneyFromInt(100),
		Usage:             []core.EmergencyUsageRecord{{ID: "1", Reason: "x", Amount: core.MoneyFromInt(150)}},
	})
	assert.True(t, l.Remaining().IsZero())
	_, err := l.Withdraw("y", core.MoneyFromInt(1), now)
	assert.ErrorIs(t, err, core.ErrInvalidWithdrawal)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	l.Contribute(core.MoneyFromInt(100))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = l.Withdraw(fmt.Sprintf("r%d", i), core.MoneyFromInt(7), now)
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.State().Usage, 14)
	assert.Equal(t, "2", l.Remaining().String())
	assert.False(t, l.Remaining().IsNegative())
}

func TestSummarizeRecentNewestFirst(t *testing.T) {
	l := NewLedger(core.EmergencyFundState{})
	l.Contribute(core.MoneyFromInt(1000))
	for i := 1; i <= 7; i++ {
		_, err := l.Withdraw(fmt.Sprintf("r%d", i), core.MoneyFromInt(10), now)
		require.NoError(t, err)
	}
	s := l.Summarize()
	assert.Equal(t, 7, s.Withdrawals)
	require.Len(t, s.Recent, 5)
	assert.Equal(t, "r7", s.Recent[0].Reason)
	assert.Equal(t, "r3", s.Recent[4].Reason)
	assert.Equal(t, "930", s.Remaining.String())
}
