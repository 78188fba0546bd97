// Package services implements the expense aggregation and budget evaluation
// flows on top of the storage repository and the currency converter.
package services

import (
	"context"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// Store interfaces the services depend on. *storage.SQLiteRepository
// satisfies all of them; tests substitute in-memory fakes.
type (
	UserStore interface {
		SetBaseCurrency(ctx context.Context, userID int64, code string) error
	}

	CategoryStore interface {
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
		ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) error
		CountBudgets(ctx context.Context, userID int64) (int64, error)
		ListBudgets(ctx context.Context, userID int64, year, month int) ([]core.Budget, error)
	}
)

// Converter normalizes amounts between currency codes. It never fails;
// unresolvable conversions degrade to identity inside the rates package.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal
}

// EventPublisher notifies downstream consumers about expense changes.
// Publishing is best-effort: a failure is logged, never surfaced.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, id int64, action string) error
}
