package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

// Categories lists the fixed expense categories in display order.
var Categories = []Category{Food, Transport, Shopping, Bills, Entertainment, Other}

type (
	Category string

	Expense struct {
		ID       string   `json:"id,omitempty"`
		Title    string   `json:"title"`
		Amount   Money    `json:"amount"`
		Category Category `json:"category"`
		Date     Date     `json:"date"`
	}

	// ExpenseInput is the editable part of an expense, sent as the body of
	// create and update calls.
	ExpenseInput struct {
		Title    string   `json:"title"`
		Amount   Money    `json:"amount"`
		Category Category `json:"category"`
		Date     Date     `json:"date"`
	}

	IncomeEntry struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
	}

	EmergencyUsageRecord struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
	}

	GamificationState struct {
		Points         int  `json:"points"`
		Streak         int  `json:"streak"`
		LastStreakDate Date `json:"lastStreakDate"`
	}

	EmergencyFundState struct {
		MonthlyTarget     Money                  `json:"monthlyTargetAmount"`
		CumulativeSavings Money                  `json:"cumulativeSavings"`
		Usage             []EmergencyUsageRecord `json:"usageHistory"`
	}
)

var (
	ErrEmptyTitle        = errors.New("empty title")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrMissingDate       = errors.New("missing date")
	ErrInvalidIncome     = errors.New("invalid income")
	ErrInvalidWithdrawal = errors.New("invalid withdrawal")
	ErrInvalidTarget     = errors.New("invalid monthly target")
	ErrInvalidReceipt    = errors.New("invalid receipt")
	ErrIncompleteForm    = errors.New("incomplete form")
	ErrUnknownExpense    = errors.New("unknown expense")
)

// ValidationError blocks a user action without mutating state. Msg is the
// human-readable text shown to the user; Err is the sentinel it classifies as.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for the given sentinel.
func NewValidationError(err error, msg string) *ValidationError {
	return &ValidationError{Err: err, Msg: msg}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Matches reports whether the category equals name ignoring case.
func (c Category) Matches(name string) bool {
	return strings.EqualFold(string(c), name)
}

func (in ExpenseInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if len(in.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if in.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, ok := ParseCategory(string(in.Category)); !ok {
		return ErrInvalidCategory
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// WithID merges an identifier onto the input, producing a full record.
func (in ExpenseInput) WithID(id string) Expense {
	return Expense{ID: id, Title: in.Title, Amount: in.Amount, Category: in.Category, Date: in.Date}
}

// Input returns the editable fields of e.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{Title: e.Title, Amount: e.Amount, Category: e.Category, Date: e.Date}
}

// StreakCredited reports whether the streak was already credited on day.
func (g GamificationState) StreakCredited(day Date) bool {
	return !g.LastStreakDate.IsZero() && g.LastStreakDate.Equal(day)
}

// Today returns the calendar date of t in t's location.
func Today(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// UnmarshalJSON accepts numeric and string identifiers.
func (e *Expense) UnmarshalJSON(data []byte) error {
	type plain Expense
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Expense(aux.plain)
	e.ID = RawID(aux.ID)
	return nil
}

// RawID renders a JSON id (number or string) as a string. null and absent
// ids yield "".
func RawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}
