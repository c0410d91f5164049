package income

import (
	"testing"

	"finboard/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIncomeRoundTrip(t *testing.T) {
	l := NewLedger(nil)
	entry, err := l.Add("Salary", core.MoneyFromInt(1000), core.NewDate(2024, 1, 1))
	require.NoError(t, err)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "1000", l.Total().String())
}

func TestAddIncomeValidation(t *testing.T) {
	l := NewLedger(nil)
	date := core.NewDate(2024, 1, 1)
	cases := []struct {
		name   string
		source string
		amount core.Money
		date   core.Date
	}{
		{"blank source", "  ", core.MoneyFromInt(10), date},
		{"negative amount", "Salary", core.MoneyFromInt(-10), date},
		{"missing date", "Salary", core.MoneyFromInt(10), core.Date{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Add(tc.source, tc.amount, tc.date)
			assert.ErrorIs(t, err, core.ErrInvalidIncome)
		})
	}
	assert.Empty(t, l.Entries())
	assert.True(t, l.Total().IsZero())
}

func TestAddIncomeAcceptsZero(t *testing.T) {
	l := NewLedger(nil)
	entry, err := l.Add("Gift", core.Zero, core.NewDate(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, entry.Amount.IsZero())
	assert.Len(t, l.Entries(), 1)
	assert.True(t, l.Total().IsZero())
}

func TestEntriesAreCopies(t *testing.T) {
	l := NewLedger([]core.IncomeEntry{{ID: "a", Source: "Gift", Amount: core.MoneyFromInt(50), Date: core.NewDate(2024, 2, 1)}})
	_, err := l.Add(" Freelance ", core.NewMoney(120.5), core.NewDate(2024, 2, 3))
	require.NoError(t, err)

	got := l.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "Freelance", got[1].Source)
	got[0].Source = "changed"
	assert.Equal(t, "Gift", l.Entries()[0].Source)
	assert.Equal(t, "170.5", l.Total().String())
}
