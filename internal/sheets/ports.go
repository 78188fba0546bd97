// Package sheets defines the outbound export port the worker writes to.
package sheets

import (
	"context"

	"spendwise/internal/core"
)

// ExpenseExporter mirrors expenses into an external sheet. Implementations
// key rows by the expense id so updates and deletes can find them again.
type ExpenseExporter interface {
	// AppendExpense adds a row for the expense and returns a row reference.
	AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)

	// RemoveExpense deletes the row previously written for this id, if any.
	RemoveExpense(ctx context.Context, id int64) error
}
