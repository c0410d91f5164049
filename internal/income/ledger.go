// Package income holds the append-only income ledger.
package income

import (
	"strings"
	"sync"

	"finboard/internal/core"

	"github.com/google/uuid"
)

const msgInvalidIncome = "Please provide a source, amount and date for the income entry."

type Ledger struct {
	mu      sync.Mutex
	entries []core.IncomeEntry
	newID   func() string
}

// NewLedger restores a ledger from persisted entries.
func NewLedger(entries []core.IncomeEntry) *Ledger {
	return &Ledger{
		entries: append([]core.IncomeEntry(nil), entries...),
		newID:   uuid.NewString,
	}
}

// Add appends a new entry with a fresh identifier. Zero amounts are
// accepted; negative ones are not.
func (l *Ledger) Add(source string, amount core.Money, date core.Date) (core.IncomeEntry, error) {
	source = strings.TrimSpace(source)
	if source == "" || amount.IsNegative() || date.IsZero() {
		return core.IncomeEntry{}, core.NewValidationError(core.ErrInvalidIncome, msgInvalidIncome)
	}
	entry := core.IncomeEntry{Source: source, Amount: amount, Date: date}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ID = l.newID()
	l.entries = append(l.entries, entry)
	return entry, nil
}

// Entries returns a copy of all entries in insertion order.
func (l *Ledger) Entries() []core.IncomeEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.IncomeEntry(nil), l.entries...)
}

// Total sums every entry.
func (l *Ledger) Total() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := core.Zero
	for _, e := range l.entries {
		total = total.Add(e.Amount)
	}
	return total
}
