package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// ExpenseService records, queries and aggregates expenses. Amounts are
// normalized into the owner's base currency when the expense is written;
// the as-entered amount and currency are stored untouched next to it.
type ExpenseService struct {
	expenses   ExpenseStore
	budgets    BudgetStore
	categories CategoryStore
	converter  Converter
	events     EventPublisher
}

func NewExpenseService(expenses ExpenseStore, budgets BudgetStore, categories CategoryStore, converter Converter, events EventPublisher) *ExpenseService {
	return &ExpenseService{
		expenses:   expenses,
		budgets:    budgets,
		categories: categories,
		converter:  converter,
		events:     events,
	}
}

// Record normalizes and persists a new expense.
//
// Preconditions, checked in this order: the user must already have at least
// one budget (ErrBudgetRequired) and a base currency (ErrBaseCurrencyRequired).
// Nothing is persisted when either fails.
func (s *ExpenseService) Record(ctx context.Context, user core.User, in core.ExpenseInput) (core.Expense, error) {
	count, err := s.budgets.CountBudgets(ctx, user.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("count budgets: %w", err)
	}
	if count == 0 {
		return core.Expense{}, core.ErrBudgetRequired
	}
	if !user.HasBaseCurrency() {
		return core.Expense{}, core.ErrBaseCurrencyRequired
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	expense, err := s.buildExpense(ctx, user, in)
	if err != nil {
		return core.Expense{}, err
	}

	created, err := s.expenses.CreateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, created.ID, amqp.ActionCreated)
	return created, nil
}

// Update re-normalizes an existing expense exactly as Record does. A nil
// CategoryID clears the category; this is an explicit overwrite, not
// "leave unchanged".
func (s *ExpenseService) Update(ctx context.Context, user core.User, id int64, in core.ExpenseInput) (core.Expense, error) {
	existing, err := s.getOwned(ctx, user, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	expense, err := s.buildExpense(ctx, user, in)
	if err != nil {
		return core.Expense{}, err
	}
	expense.ID = existing.ID

	updated, err := s.expenses.UpdateExpense(ctx, expense)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, updated.ID, amqp.ActionUpdated)
	return updated, nil
}

// Delete removes an expense after the ownership check.
func (s *ExpenseService) Delete(ctx context.Context, user core.User, id int64) error {
	if _, err := s.getOwned(ctx, user, id); err != nil {
		return err
	}
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, id, amqp.ActionDeleted)
	return nil
}

// Query returns the user's expenses, optionally restricted to one category
// and/or an inclusive date range. Callers must not rely on the order beyond
// it being deterministic for a given store.
func (s *ExpenseService) Query(ctx context.Context, user core.User, categoryID *int64, start, end *time.Time) ([]core.Expense, error) {
	expenses, err := s.expenses.ListExpenses(ctx, core.ExpenseFilter{
		UserID:     user.ID,
		CategoryID: categoryID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Summarize totals the normalized amounts of the filtered expense set and
// groups them by category display name. The per-category values always add
// up to the total.
func (s *ExpenseService) Summarize(ctx context.Context, user core.User, start, end *time.Time) (core.Summary, error) {
	expenses, err := s.Query(ctx, user, nil, start, end)
	if err != nil {
		return core.Summary{}, err
	}

	summary := core.Summary{
		Total:      decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}
	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		name := e.DisplayCategory()
		summary.ByCategory[name] = summary.ByCategory[name].Add(e.Amount)
	}
	return summary, nil
}

// MonthlySummary sums the given calendar year per month, ascending. Months
// without expenses produce no entry.
func (s *ExpenseService) MonthlySummary(ctx context.Context, user core.User, year int) ([]core.MonthlyTotal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	expenses, err := s.Query(ctx, user, nil, &start, &end)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[int]decimal.Decimal)
	for _, e := range expenses {
		m := int(e.Date.Month())
		byMonth[m] = byMonth[m].Add(e.Amount)
	}

	months := make([]int, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Ints(months)

	out := make([]core.MonthlyTotal, 0, len(months))
	for _, m := range months {
		out = append(out, core.MonthlyTotal{
			Month: fmt.Sprintf("%04d-%02d", year, m),
			Total: byMonth[m],
		})
	}
	return out, nil
}

// buildExpense normalizes the input into the user's base currency and
// resolves the optional category. The stored amount is rounded to storage
// precision; the original amount is kept verbatim.
func (s *ExpenseService) buildExpense(ctx context.Context, user core.User, in core.ExpenseInput) (core.Expense, error) {
	normalized := s.converter.Convert(ctx, in.Amount, in.Currency, user.BaseCurrency)
	normalized = core.RoundHalfUp(normalized, core.StorageScale)

	expense := core.Expense{
		UserID:           user.ID,
		Amount:           normalized,
		OriginalAmount:   in.Amount,
		OriginalCurrency: core.NormalizeCurrency(in.Currency),
		Date:             in.Date,
		Description:      in.Description,
		Recurring:        in.Recurring,
	}

	if in.CategoryID != nil {
		category, err := s.categories.GetCategory(ctx, *in.CategoryID)
		switch {
		case err == nil:
			expense.CategoryID = &category.ID
			expense.CategoryName = category.Name
		case isNotFound(err):
			// An unresolvable category id is ignored, leaving the
			// expense uncategorized.
		default:
			return core.Expense{}, fmt.Errorf("resolve category: %w", err)
		}
	}

	return expense, nil
}

func (s *ExpenseService) getOwned(ctx context.Context, user core.User, id int64) (core.Expense, error) {
	expense, err := s.expenses.GetExpense(ctx, id)
	if isNotFound(err) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if expense.UserID != user.ID {
		return core.Expense{}, core.ErrUnauthorized
	}
	return expense, nil
}

func (s *ExpenseService) publish(ctx context.Context, id int64, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, id, action); err != nil {
		// The write already succeeded; the worker's catch-up pass
		// covers lost events.
		slog.ErrorContext(ctx, "failed to publish expense event",
			"id", id, "action", action, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
