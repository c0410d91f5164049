package session

import (
	"encoding/json"
	"strings"

	"finboard/internal/core"

	"github.com/shopspring/decimal"
)

const (
	msgIncompleteForm = "Please fill out all fields before submitting."
	msgUnknownExpense = "Expense not found."
	msgInvalidReceipt = "Only PDF receipts are supported right now."
	msgInvalidTarget  = "Please enter a valid monthly amount."
	msgInvalidIncome  = "Please provide a source, amount and date for the income entry."
)

// ExpenseForm is raw user input for creating or editing an expense. Amount
// accepts both JSON numbers and strings.
type ExpenseForm struct {
	Title    string    `json:"title"`
	Amount   FormValue `json:"amount"`
	Category string    `json:"category"`
	Date     string    `json:"date"`
}

// IncomeForm is raw user input for an income entry.
type IncomeForm struct {
	Source string    `json:"source"`
	Amount FormValue `json:"amount"`
	Date   string    `json:"date"`
}

// FormValue is a form field that may arrive as a JSON string or number.
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FormValue(s)
		return nil
	}
	*v = FormValue(raw)
	return nil
}

// Input validates the form. Every field is required; the category must be
// one of the fixed categories.
func (f ExpenseForm) Input() (core.ExpenseInput, error) {
	incomplete := core.NewValidationError(core.ErrIncompleteForm, msgIncompleteForm)

	title := strings.TrimSpace(f.Title)
	if title == "" || strings.TrimSpace(string(f.Amount)) == "" ||
		strings.TrimSpace(f.Category) == "" || strings.TrimSpace(f.Date) == "" {
		return core.ExpenseInput{}, incomplete
	}
	amount, err := core.ParseAmount(string(f.Amount))
	if err != nil {
		return core.ExpenseInput{}, incomplete
	}
	category, ok := core.ParseCategory(f.Category)
	if !ok {
		return core.ExpenseInput{}, incomplete
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.ExpenseInput{}, incomplete
	}

	in := core.ExpenseInput{Title: title, Amount: amount, Category: category, Date: date}
	if err := in.Validate(); err != nil {
		return core.ExpenseInput{}, incomplete
	}
	return in, nil
}

// lenientAmount parses an amount, returning 0 for anything unparseable.
// Signs are kept so ledgers can apply their own clamping rules.
func lenientAmount(v FormValue) core.Money {
	s := strings.ReplaceAll(strings.TrimSpace(string(v)), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Zero
	}
	return core.Money{Decimal: d}
}

// lenientDate parses a date, returning the missing date on failure.
func lenientDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
