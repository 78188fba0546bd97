package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// fakeExporter keeps rows in memory, keyed by expense id like the sheet.
type fakeExporter struct {
	mu      sync.Mutex
	rows    map[int64]core.Expense
	appends int
	removes int
	fail    error
}

func newFakeExporter() *fakeExporter {
	return &fakeExporter{rows: make(map[int64]core.Expense)}
}

func (f *fakeExporter) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.rows[e.ID] = e
	f.appends++
	return fmt.Sprintf("row-%d", e.ID), nil
}

func (f *fakeExporter) RemoveExpense(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	delete(f.rows, id)
	f.removes++
	return nil
}

func newWorkerFixture(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *fakeExporter, core.User) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	exporter := newFakeExporter()
	return NewExportWorker(repo, exporter, 10), repo, exporter, user
}

func seedExpense(t *testing.T, repo *storage.SQLiteRepository, userID int64) core.Expense {
	t.Helper()
	e, err := repo.CreateExpense(context.Background(), core.Expense{
		UserID:           userID,
		Amount:           decimal.RequireFromString("117.65"),
		OriginalAmount:   decimal.RequireFromString("100.00"),
		OriginalCurrency: "EUR",
		Date:             time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Description:      "groceries",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	return e
}

func TestHandleEventCreated(t *testing.T) {
	w, repo, exporter, user := newWorkerFixture(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, user.ID)

	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(expense.ID, amqp.ActionCreated)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if _, ok := exporter.rows[expense.ID]; !ok {
		t.Error("expense row missing from the sheet")
	}
	if pending, _ := repo.ListUnexported(ctx, 10); len(pending) != 0 {
		t.Errorf("still %d unexported after a created event", len(pending))
	}
}

func TestHandleEventUpdatedReplacesRow(t *testing.T) {
	w, repo, exporter, user := newWorkerFixture(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, user.ID)

	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(expense.ID, amqp.ActionCreated)); err != nil {
		t.Fatalf("HandleEvent(created) error = %v", err)
	}

	expense.Description = "groceries again"
	if _, err := repo.UpdateExpense(ctx, expense); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(expense.ID, amqp.ActionUpdated)); err != nil {
		t.Fatalf("HandleEvent(updated) error = %v", err)
	}

	// One row per expense: the stale row is removed before the re-append.
	if len(exporter.rows) != 1 {
		t.Fatalf("sheet holds %d rows, want 1", len(exporter.rows))
	}
	if got := exporter.rows[expense.ID].Description; got != "groceries again" {
		t.Errorf("row description = %q, want the updated text", got)
	}
	if exporter.removes != 1 {
		t.Errorf("removes = %d, want 1", exporter.removes)
	}
}

func TestHandleEventDeleted(t *testing.T) {
	w, repo, exporter, user := newWorkerFixture(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, user.ID)

	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(expense.ID, amqp.ActionCreated)); err != nil {
		t.Fatalf("HandleEvent(created) error = %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(expense.ID, amqp.ActionDeleted)); err != nil {
		t.Fatalf("HandleEvent(deleted) error = %v", err)
	}
	if len(exporter.rows) != 0 {
		t.Errorf("sheet holds %d rows after delete, want 0", len(exporter.rows))
	}
}

func TestHandleEventVanishedExpense(t *testing.T) {
	w, _, exporter, _ := newWorkerFixture(t)

	// Created event for an id that was deleted before the worker got to it.
	if err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(404, amqp.ActionCreated)); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for a vanished expense", err)
	}
	if exporter.appends != 0 {
		t.Error("nothing should be appended for a vanished expense")
	}
}

func TestHandleEventUnknownAction(t *testing.T) {
	w, _, exporter, _ := newWorkerFixture(t)

	if err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(1, "renamed")); err != nil {
		t.Fatalf("HandleEvent() error = %v, unknown actions are dropped", err)
	}
	if exporter.appends != 0 || exporter.removes != 0 {
		t.Error("unknown action must not touch the sheet")
	}
}

func TestProcessPending(t *testing.T) {
	w, repo, exporter, user := newWorkerFixture(t)
	ctx := context.Background()

	first := seedExpense(t, repo, user.ID)
	second := seedExpense(t, repo, user.ID)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	for _, id := range []int64{first.ID, second.ID} {
		if _, ok := exporter.rows[id]; !ok {
			t.Errorf("expense %d missing from the sheet", id)
		}
	}
	if pending, _ := repo.ListUnexported(ctx, 10); len(pending) != 0 {
		t.Errorf("still %d unexported after catch-up", len(pending))
	}

	// A second pass finds nothing to do.
	appends := exporter.appends
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second ProcessPending() error = %v", err)
	}
	if exporter.appends != appends {
		t.Error("idle catch-up pass must not re-export")
	}
}

func TestProcessPendingKeepsGoingOnFailure(t *testing.T) {
	w, repo, exporter, user := newWorkerFixture(t)
	ctx := context.Background()
	expense := seedExpense(t, repo, user.ID)

	exporter.fail = errors.New("sheet unavailable")
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v, per-expense failures are logged", err)
	}

	// The expense stays queued for the next pass.
	pending, err := repo.ListUnexported(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnexported() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != expense.ID {
		t.Errorf("pending = %+v, want the failed expense still queued", pending)
	}

	exporter.fail = nil
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("retry ProcessPending() error = %v", err)
	}
	if pending, _ := repo.ListUnexported(ctx, 10); len(pending) != 0 {
		t.Errorf("still %d unexported after retry", len(pending))
	}
}
