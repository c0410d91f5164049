// Package session owns the dashboard's canonical state: the expense list,
// the gamification state and the emergency and income ledgers.
//
// All operations run behind one mutex, so handlers execute one at a time to
// completion, including the remote call they make. Every mutation is
// persisted before the operation returns, and each operation clears the
// single error slot before checking its own preconditions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/emergency"
	"finboard/internal/gamification"
	"finboard/internal/income"
	applog "finboard/internal/log"
	"finboard/internal/state"
)

// ExpenseAPI is the remote expense store.
type ExpenseAPI interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (string, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) error
}

// Config configures a Session.
type Config struct {
	Budget core.Money
	Now    func() time.Time
	Logger *applog.Logger
}

type Session struct {
	mu     sync.Mutex
	api    ExpenseAPI
	store  state.Store
	budget core.Money
	now    func() time.Time
	logger *applog.Logger

	expenses  []core.Expense
	game      core.GamificationState
	emergency *emergency.Ledger
	income    *income.Ledger
	lastErr   string
	revision  uint64
}

func New(api ExpenseAPI, store state.Store, cfg Config) *Session {
	if cfg.Budget.IsZero() {
		cfg.Budget = gamification.DefaultBudget
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	return &Session{
		api:       api,
		store:     store,
		budget:    cfg.Budget,
		now:       cfg.Now,
		logger:    cfg.Logger.WithComponent(applog.ComponentSession),
		expenses:  []core.Expense{},
		emergency: emergency.NewLedger(core.EmergencyFundState{}),
		income:    income.NewLedger(nil),
	}
}

// Load restores persisted state, fetches the expense list and evaluates the
// streak for today. A failed fetch leaves the list empty and fills the error
// slot; persisted state is still restored.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	game, err := state.LoadGamification(ctx, s.store)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("load gamification state: %w", err))
	}
	fund, err := state.LoadEmergency(ctx, s.store)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("load emergency state: %w", err))
	}
	entries, err := state.LoadIncome(ctx, s.store)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("load income entries: %w", err))
	}
	s.game = game
	s.emergency = emergency.NewLedger(fund)
	s.income = income.NewLedger(entries)
	s.revision++

	expenses, fetchErr := s.api.List(ctx)
	if fetchErr == nil {
		s.expenses = expenses
	}
	if err := s.evaluateLocked(ctx, core.Today(s.now())); err != nil {
		return s.fail(ctx, err)
	}
	if fetchErr != nil {
		s.logger.WarnContext(ctx, "Initial expense fetch failed", applog.FieldError, fetchErr)
		return s.fail(ctx, fetchErr)
	}

	s.logger.InfoContext(ctx, "Session loaded",
		"expenses", len(s.expenses),
		"income_entries", len(entries),
		"streak", s.game.Streak)
	return nil
}

// AddExpense validates the form, creates the expense remotely and appends
// it with the id returned by the API.
func (s *Session) AddExpense(ctx context.Context, form ExpenseForm) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	in, err := form.Input()
	if err != nil {
		return core.Expense{}, s.fail(ctx, err)
	}
	id, err := s.api.Create(ctx, in)
	if err != nil {
		return core.Expense{}, s.fail(ctx, err)
	}

	e := in.WithID(id)
	s.expenses = append(s.expenses, e)
	s.revision++
	s.logger.InfoContext(ctx, "Expense added", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithExpense(e.ID, e.Title, e.Amount.String(), string(e.Category), e.Date.String()).
		ToSlice()...)

	if err := s.evaluateLocked(ctx, core.Today(s.now())); err != nil {
		return e, s.fail(ctx, err)
	}
	return e, nil
}

// UpdateExpense replaces all editable fields of expense id. The local record
// changes only after the API accepts the update.
func (s *Session) UpdateExpense(ctx context.Context, id string, form ExpenseForm) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	in, err := form.Input()
	if err != nil {
		return core.Expense{}, s.fail(ctx, err)
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return core.Expense{}, s.fail(ctx, core.NewValidationError(core.ErrUnknownExpense, msgUnknownExpense))
	}
	if err := s.api.Update(ctx, id, in); err != nil {
		return core.Expense{}, s.fail(ctx, err)
	}

	e := in.WithID(id)
	s.expenses[idx] = e
	s.revision++
	s.logger.InfoContext(ctx, "Expense updated", applog.NewFields().
		WithOperation(applog.OpUpdate).
		WithExpense(e.ID, e.Title, e.Amount.String(), string(e.Category), e.Date.String()).
		ToSlice()...)

	if err := s.evaluateLocked(ctx, core.Today(s.now())); err != nil {
		return e, s.fail(ctx, err)
	}
	return e, nil
}

// AddIncome appends an income entry. A blank amount counts as missing; zero
// is a valid amount.
func (s *Session) AddIncome(ctx context.Context, form IncomeForm) (core.IncomeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	if strings.TrimSpace(string(form.Amount)) == "" {
		return core.IncomeEntry{}, s.fail(ctx, core.NewValidationError(core.ErrInvalidIncome, msgInvalidIncome))
	}
	prev := s.income.Entries()
	entry, err := s.income.Add(form.Source, lenientAmount(form.Amount), lenientDate(form.Date))
	if err != nil {
		return core.IncomeEntry{}, s.fail(ctx, err)
	}
	if err := state.SaveIncome(ctx, s.store, s.income.Entries()); err != nil {
		s.income = income.NewLedger(prev)
		return core.IncomeEntry{}, s.fail(ctx, fmt.Errorf("save income entries: %w", err))
	}
	s.revision++
	return entry, nil
}

// SetMonthlyTarget stores the monthly emergency amount.
func (s *Session) SetMonthlyTarget(ctx context.Context, amount FormValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	m, err := core.ParseAmount(string(amount))
	if err != nil {
		return s.fail(ctx, core.NewValidationError(core.ErrInvalidTarget, msgInvalidTarget))
	}
	prev := s.emergency.State()
	if err := s.emergency.SetMonthlyTarget(m); err != nil {
		return s.fail(ctx, err)
	}
	return s.saveEmergencyLocked(ctx, prev)
}

// Contribute adds amount to savings and returns the amount actually added;
// negative or unparseable amounts add 0.
func (s *Session) Contribute(ctx context.Context, amount FormValue) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	prev := s.emergency.State()
	added := s.emergency.Contribute(lenientAmount(amount))
	if err := s.saveEmergencyLocked(ctx, prev); err != nil {
		return core.Zero, err
	}
	return added, nil
}

// ContributeMonthly adds the monthly target and returns the amount added,
// which is zero when no target is set.
func (s *Session) ContributeMonthly(ctx context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	prev := s.emergency.State()
	if !s.emergency.ContributeMonthly() {
		return core.Zero, nil
	}
	if err := s.saveEmergencyLocked(ctx, prev); err != nil {
		return core.Zero, err
	}
	return prev.MonthlyTarget, nil
}

func (s *Session) Withdraw(ctx context.Context, reason string, amount FormValue) (core.EmergencyUsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	prev := s.emergency.State()
	rec, err := s.emergency.Withdraw(reason, lenientAmount(amount), s.now())
	if err != nil {
		return core.EmergencyUsageRecord{}, s.fail(ctx, err)
	}
	if err := s.saveEmergencyLocked(ctx, prev); err != nil {
		return core.EmergencyUsageRecord{}, err
	}
	s.logger.InfoContext(ctx, "Emergency funds used", "reason", rec.Reason, applog.FieldAmount, rec.Amount.String())
	return rec, nil
}

// AttachReceipt accepts PDF receipts. Nothing is stored or sent.
func (s *Session) AttachReceipt(ctx context.Context, filename, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""

	if contentType != "application/pdf" {
		return s.fail(ctx, core.NewValidationError(core.ErrInvalidReceipt, msgInvalidReceipt))
	}
	s.logger.InfoContext(ctx, "Receipt accepted", "filename", filename)
	return nil
}

// Evaluate runs the daily streak transition for today against all-time
// spend.
func (s *Session) Evaluate(ctx context.Context, today core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.evaluateLocked(ctx, today); err != nil {
		return s.fail(ctx, err)
	}
	return nil
}

// evaluateLocked commits the next gamification state only once it is saved.
func (s *Session) evaluateLocked(ctx context.Context, today core.Date) error {
	next := gamification.Evaluate(s.game, analytics.Total(s.expenses), s.budget, today)
	if next.Points == s.game.Points && next.Streak == s.game.Streak &&
		next.LastStreakDate.Equal(s.game.LastStreakDate) {
		return nil
	}
	if err := state.SaveGamification(ctx, s.store, next); err != nil {
		s.restoreLocked(ctx, func() error { return state.SaveGamification(ctx, s.store, s.game) })
		return fmt.Errorf("save gamification state: %w", err)
	}
	s.game = next
	s.revision++
	s.logger.DebugContext(ctx, "Streak evaluated",
		applog.FieldOperation, applog.OpEvaluate,
		"points", next.Points,
		"streak", next.Streak)
	return nil
}

// saveEmergencyLocked persists the ledger. On failure the ledger is rolled
// back to prev so memory never runs ahead of storage.
func (s *Session) saveEmergencyLocked(ctx context.Context, prev core.EmergencyFundState) error {
	if err := state.SaveEmergency(ctx, s.store, s.emergency.State()); err != nil {
		s.emergency = emergency.NewLedger(prev)
		s.restoreLocked(ctx, func() error { return state.SaveEmergency(ctx, s.store, prev) })
		return s.fail(ctx, fmt.Errorf("save emergency state: %w", err))
	}
	s.revision++
	return nil
}

// restoreLocked rewrites the previous state after a failed multi-key save,
// which may have written some keys before failing.
func (s *Session) restoreLocked(ctx context.Context, save func() error) {
	if err := save(); err != nil {
		s.logger.WarnContext(ctx, "Failed to restore persisted state", applog.FieldError, err)
	}
}

// Dashboard derives the snapshot for c from the canonical lists.
func (s *Session) Dashboard(c analytics.Criteria) analytics.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analytics.Summarize(s.expenses, s.income.Total(), c, s.budget, s.now())
}

// Expenses returns a copy of the expense list.
func (s *Session) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.expenses...)
}

func (s *Session) Gamification() gamification.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gamification.Summarize(s.game)
}

func (s *Session) Emergency() emergency.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency.Summarize()
}

// IncomeView lists entries with their total.
type IncomeView struct {
	Entries []core.IncomeEntry `json:"entries"`
	Total   core.Money         `json:"total"`
}

func (s *Session) Income() IncomeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.income.Entries()
	if entries == nil {
		entries = []core.IncomeEntry{}
	}
	return IncomeView{Entries: entries, Total: s.income.Total()}
}

// LastError returns the message in the error slot, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Revision changes whenever state visible through Dashboard changes.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Budget returns the spend threshold.
func (s *Session) Budget() core.Money {
	return s.budget
}

func (s *Session) indexOf(id string) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// fail records err in the error slot and returns it.
func (s *Session) fail(ctx context.Context, err error) error {
	s.lastErr = err.Error()
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		s.logger.ErrorContext(ctx, "Session operation failed", applog.FieldError, err)
	}
	return err
}
