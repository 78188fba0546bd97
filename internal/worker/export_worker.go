// Package worker mirrors expenses into the configured spreadsheet, driven
// by AMQP change events with a periodic catch-up pass for anything missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/sheets"
	"spendwise/internal/storage"
)

type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.ExpenseExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.ExpenseExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single expense event from AMQP.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "processing expense event",
		"id", msg.ID,
		"action", msg.Action)

	switch msg.Action {
	case amqp.ActionDeleted:
		if err := w.exporter.RemoveExpense(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove expense %d from sheet: %w", msg.ID, err)
		}
		return nil

	case amqp.ActionCreated, amqp.ActionUpdated:
		expense, err := w.storage.GetExpense(ctx, msg.ID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before the event was processed; nothing to export.
			slog.WarnContext(ctx, "expense vanished before export", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense %d: %w", msg.ID, err)
		}
		return w.export(ctx, expense, msg.Action == amqp.ActionUpdated)

	default:
		slog.WarnContext(ctx, "unknown expense event action, dropping",
			"id", msg.ID, "action", msg.Action)
		return nil
	}
}

// ProcessPending exports expenses whose events were lost. Backup mechanism
// behind the AMQP flow, same as a startup check.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "processing unexported expenses", "count", len(pending))

	for _, expense := range pending {
		if err := w.export(ctx, expense, true); err != nil {
			slog.ErrorContext(ctx, "failed to export pending expense",
				"id", expense.ID, "error", err)
			// Keep going; the next pass retries this one.
		}
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, expense core.Expense, replace bool) error {
	if replace {
		// Drop any stale row first so the sheet holds one row per expense.
		if err := w.exporter.RemoveExpense(ctx, expense.ID); err != nil {
			return fmt.Errorf("remove stale row for expense %d: %w", expense.ID, err)
		}
	}

	ref, err := w.exporter.AppendExpense(ctx, expense)
	if err != nil {
		return fmt.Errorf("append expense %d: %w", expense.ID, err)
	}

	if err := w.storage.MarkExported(ctx, expense.ID); err != nil {
		return fmt.Errorf("mark expense %d exported: %w", expense.ID, err)
	}

	slog.InfoContext(ctx, "expense exported", "id", expense.ID, "ref", ref)
	return nil
}
