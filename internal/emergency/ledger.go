// Package emergency tracks emergency-fund contributions and withdrawals.
//
// The remaining balance is never stored: it is derived from cumulative
// savings minus recorded usage and floored at zero. Withdrawals are
// serialized with the balance check so usage can never exceed savings.
package emergency

import (
	"strings"
	"sync"
	"time"

	"finboard/internal/core"

	"github.com/google/uuid"
)

const (
	msgInvalidWithdrawal = "Invalid amount or exceeds remaining balance."
	msgMissingReason     = "Please provide a reason for using emergency funds."
	msgInvalidTarget     = "Monthly emergency amount must not be negative."
)

// Ledger is safe for concurrent use.
type Ledger struct {
	mu    sync.Mutex
	state core.EmergencyFundState
	newID func() string
}

// NewLedger restores a ledger from persisted state.
func NewLedger(state core.EmergencyFundState) *Ledger {
	state.Usage = append([]core.EmergencyUsageRecord(nil), state.Usage...)
	return &Ledger{state: state, newID: uuid.NewString}
}

// State returns a copy of the ledger state.
func (l *Ledger) State() core.EmergencyFundState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Usage = append([]core.EmergencyUsageRecord(nil), l.state.Usage...)
	return s
}

// SetMonthlyTarget stores the monthly amount; it does not move money.
func (l *Ledger) SetMonthlyTarget(amount core.Money) error {
	if amount.IsNegative() {
		return core.NewValidationError(core.ErrInvalidTarget, msgInvalidTarget)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.MonthlyTarget = amount
	return nil
}

// Contribute adds max(amount, 0) to cumulative savings and returns the
// amount actually added.
func (l *Ledger) Contribute(amount core.Money) core.Money {
	added := amount.NonNegative()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.CumulativeSavings = l.state.CumulativeSavings.Add(added)
	return added
}

// ContributeMonthly contributes the monthly target when one is set and
// reports whether anything was added.
func (l *Ledger) ContributeMonthly() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.MonthlyTarget.IsPositive() {
		return false
	}
	l.state.CumulativeSavings = l.state.CumulativeSavings.Add(l.state.MonthlyTarget)
	return true
}

// Withdraw records a usage dated now. It fails with ErrInvalidWithdrawal when
// the reason is blank, the amount is not positive, or the amount exceeds the
// remaining balance.
func (l *Ledger) Withdraw(reason string, amount core.Money, now time.Time) (core.EmergencyUsageRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return core.EmergencyUsageRecord{}, core.NewValidationError(core.ErrInvalidWithdrawal, msgMissingReason)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() || amount.Cmp(l.remaining()) > 0 {
		return core.EmergencyUsageRecord{}, core.NewValidationError(core.ErrInvalidWithdrawal, msgInvalidWithdrawal)
	}
	rec := core.EmergencyUsageRecord{
		ID:     l.newID(),
		Reason: reason,
		Amount: amount,
		Date:   core.Today(now),
	}
	l.state.Usage = append(l.state.Usage, rec)
	return rec, nil
}

// Remaining is max(cumulativeSavings - totalUsed, 0).
func (l *Ledger) Remaining() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining()
}

// TotalUsed sums all recorded usage.
func (l *Ledger) TotalUsed() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalUsed()
}

// RecentUsage returns up to n records, newest first.
func (l *Ledger) RecentUsage(n int) []core.EmergencyUsageRecord {
	if n <= 0 {
		return []core.EmergencyUsageRecord{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.EmergencyUsageRecord, 0, min(n, len(l.state.Usage)))
	for i := len(l.state.Usage) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.state.Usage[i])
	}
	return out
}

func (l *Ledger) totalUsed() core.Money {
	used := core.Zero
	for _, u := range l.state.Usage {
		used = used.Add(u.Amount)
	}
	return used
}

func (l *Ledger) remaining() core.Money {
	return l.state.CumulativeSavings.Sub(l.totalUsed()).NonNegative()
}

// Summary is the read-only projection shown by the UI.
type Summary struct {
	MonthlyTarget     core.Money                  `json:"monthlyTargetAmount"`
	CumulativeSavings core.Money                  `json:"cumulativeSavings"`
	TotalUsed         core.Money                  `json:"totalUsed"`
	Remaining         core.Money                  `json:"remainingBalance"`
	Withdrawals       int                         `json:"withdrawals"`
	Recent            []core.EmergencyUsageRecord `json:"recentUsage"`
}

// Summarize returns the ledger projection with the five newest withdrawals.
func (l *Ledger) Summarize() Summary {
	l.mu.Lock()
	s := Summary{
		MonthlyTarget:     l.state.MonthlyTarget,
		CumulativeSavings: l.state.CumulativeSavings,
		TotalUsed:         l.totalUsed(),
		Remaining:         l.remaining(),
		Withdrawals:       len(l.state.Usage),
	}
	l.mu.Unlock()
	s.Recent = l.RecentUsage(5)
	return s
}
