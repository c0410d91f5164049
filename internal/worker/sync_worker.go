// Package worker mirrors expense changes from SQLite into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"finboard/internal/amqp"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
	"finboard/internal/storage"
)

// ExpenseSource reads current expenses from the shared database.
type ExpenseSource interface {
	Get(ctx context.Context, id string) (core.Expense, error)
	List(ctx context.Context) ([]core.Expense, error)
}

// SyncWorker handles synchronization of expenses from SQLite to the sheet.
type SyncWorker struct {
	source ExpenseSource
	sheet  sheets.RowWriter
	logger *applog.Logger
}

func NewSyncWorker(source ExpenseSource, sheet sheets.RowWriter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		source: source,
		sheet:  sheet,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent applies one change notification. A returned error makes the
// consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		applog.FieldEventType, string(evt.Type),
		applog.FieldExpenseID, evt.ID)

	switch evt.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		return w.syncOne(ctx, evt.ID)
	case amqp.EventDeleted:
		return w.clear(ctx, evt.ID)
	default:
		// Rejected earlier by the decoder; ack anything that slips through.
		w.logger.WarnContext(ctx, "Ignoring unknown event type", applog.FieldEventType, string(evt.Type))
		return nil
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, id string) error {
	e, err := w.source.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted after the event was published; the delete event follows.
		w.logger.InfoContext(ctx, "Expense no longer exists, clearing row", applog.FieldExpenseID, id)
		return w.clear(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get expense %s: %w", id, err)
	}
	return w.upsert(ctx, e)
}

func (w *SyncWorker) upsert(ctx context.Context, e core.Expense) error {
	ref, err := w.sheet.Upsert(ctx, e)
	if err != nil {
		return fmt.Errorf("upsert expense %s: %w", e.ID, err)
	}
	w.logger.InfoContext(ctx, "Expense mirrored",
		applog.NewFields().
			WithOperation(applog.OpSync).
			WithExpense(e.ID, e.Title, e.Amount.String(), string(e.Category), e.Date.String()).
			ToSlice()...)
	w.logger.DebugContext(ctx, "Sheet row written", applog.FieldExpenseID, e.ID, "row", ref)
	return nil
}

func (w *SyncWorker) clear(ctx context.Context, id string) error {
	if err := w.sheet.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear expense %s: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Expense row cleared", applog.FieldExpenseID, id)
	return nil
}

// StartupSync upserts every stored expense, recovering from events missed
// while the worker was down. Individual failures are logged and skipped.
func (w *SyncWorker) StartupSync(ctx context.Context) (synced int, err error) {
	expenses, err := w.source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses for startup sync: %w", err)
	}

	failed := 0
	for _, e := range expenses {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.upsert(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense during startup",
				applog.FieldExpenseID, e.ID, applog.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(expenses),
		"synced", synced,
		"errors", failed)
	return synced, nil
}
