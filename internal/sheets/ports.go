// Package sheets mirrors expenses into a spreadsheet, one row per expense.
package sheets

import (
	"context"

	"finboard/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "Date", "Title", "Category", "Amount"}

// Ports for outbound adapters.
type (
	// RowWriter keeps exactly one row per expense id.
	RowWriter interface {
		// Upsert writes e into its existing row, or appends a new one.
		Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
		// Clear blanks the row of id. Unknown ids are not an error.
		Clear(ctx context.Context, id string) error
	}
)

// Row renders e as [id, date, title, category, amount].
func Row(e core.Expense) []any {
	return []any{e.ID, e.Date.String(), e.Title, string(e.Category), e.Amount.InexactFloat64()}
}
