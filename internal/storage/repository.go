// Package storage is the SQLite-backed expense store served by the REST API.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"finboard/internal/core"
	"finboard/internal/sqlitedb"

	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no expense has the requested id.
var ErrNotFound = errors.New("expense not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlitedb.Open(dbPath, migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectExpense = `SELECT id, title, amount, category, date FROM expenses`

// List returns every expense in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpense+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	n, ok := parseID(id)
	if !ok {
		return core.Expense{}, ErrNotFound
	}
	e, err := scanExpense(r.db.QueryRowContext(ctx, selectExpense+` WHERE id = ?`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// Create inserts the expense and returns it with its assigned id.
func (r *SQLiteRepository) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (title, amount, category, date) VALUES (?, ?, ?, ?)`,
		in.Title, in.Amount.String(), string(in.Category), in.Date.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("read inserted id: %w", err)
	}

	e := in.WithID(strconv.FormatInt(n, 10))
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"category", e.Category,
		"date", e.Date.String())
	return e, nil
}

// Update replaces the editable fields of an existing expense.
func (r *SQLiteRepository) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	n, ok := parseID(id)
	if !ok {
		return core.Expense{}, ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET title = ?, amount = ?, category = ?, date = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		in.Title, in.Amount.String(), string(in.Category), in.Date.String(), n)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Expense updated", "id", id)
	return in.WithID(id), nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		id                            int64
		title, amount, category, date string
	)
	if err := s.Scan(&id, &title, &amount, &category, &date); err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:       strconv.FormatInt(id, 10),
		Title:    title,
		Category: core.Category(category),
	}
	if d, err := decimal.NewFromString(amount); err == nil {
		e.Amount = core.Money{Decimal: d}
	}
	e.Date, _ = core.ParseDate(date)
	return e, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n > 0
}
