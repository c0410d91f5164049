// Package core provides money parsing and handling utilities.
//
// This file contains the Money type, lenient JSON decoding for amounts coming
// from the REST collaborator, and display formatting.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is a decimal currency amount. Arithmetic is exact; float64 is only
// used at the JSON boundary by upstream clients.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{decimal.Zero}

// NewMoney builds a Money from a float, e.g. a JSON number in a test fixture.
func NewMoney(v float64) Money {
	return Money{decimal.NewFromFloat(v)}
}

// MoneyFromInt builds a Money holding a whole number of currency units.
func MoneyFromInt(v int64) Money {
	return Money{decimal.NewFromInt(v)}
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{m.Decimal.Add(o.Decimal)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{m.Decimal.Sub(o.Decimal)} }

// Cmp compares m and o like decimal.Decimal.Cmp.
func (m Money) Cmp(o Money) int { return m.Decimal.Cmp(o.Decimal) }

// NonNegative returns max(m, 0).
func (m Money) NonNegative() Money {
	if m.IsNegative() {
		return Zero
	}
	return m
}

// ParseAmount converts user input to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rejects signs, empty input and anything that is not a plain decimal.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Money{d}, nil
}

// MarshalJSON encodes the amount as a bare JSON number, which is what the
// REST collaborator stores.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON never fails: null, empty and non-numeric values decode to 0
// so that a malformed record cannot break aggregation.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		m.Decimal = decimal.Zero
		return nil
	}
	m.Decimal = d
	return nil
}

// Format renders the amount for display, e.g. "$1,234.50".
func (m Money) Format() string {
	neg := m.IsNegative()
	s := m.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
