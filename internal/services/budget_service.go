package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// BudgetService creates budgets and computes spend-vs-limit status.
type BudgetService struct {
	budgets    BudgetStore
	categories CategoryStore
	users      UserStore
	expenses   *ExpenseService
}

func NewBudgetService(budgets BudgetStore, categories CategoryStore, users UserStore, expenses *ExpenseService) *BudgetService {
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		users:      users,
		expenses:   expenses,
	}
}

// EnsureBaseCurrency assigns the user's base currency if it is still unset:
// the proposed code when non-blank, core.DefaultBaseCurrency otherwise.
// Creating the first budget triggers this; it mutates the passed user so the
// caller observes the new value. Already-set currencies are never changed,
// and existing expense amounts are never reconverted.
func (s *BudgetService) EnsureBaseCurrency(ctx context.Context, user *core.User, proposed string) error {
	if user.HasBaseCurrency() {
		return nil
	}
	code := core.NormalizeCurrency(proposed)
	if strings.TrimSpace(code) == "" {
		code = core.DefaultBaseCurrency
	}
	if err := s.users.SetBaseCurrency(ctx, user.ID, code); err != nil {
		return fmt.Errorf("set base currency: %w", err)
	}
	user.BaseCurrency = code
	return nil
}

// Create persists a new budget. Uniqueness over (category, year, month) is
// deliberately not enforced.
func (s *BudgetService) Create(ctx context.Context, user *core.User, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.EnsureBaseCurrency(ctx, user, in.Currency); err != nil {
		return core.Budget{}, err
	}

	budget := core.Budget{
		UserID:      user.ID,
		Year:        in.Year,
		Month:       in.Month,
		LimitAmount: in.LimitAmount,
	}
	if err := s.resolveCategory(ctx, &budget, in.CategoryID); err != nil {
		return core.Budget{}, err
	}

	created, err := s.budgets.CreateBudget(ctx, budget)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "budget created",
		"id", created.ID,
		"user_id", user.ID,
		"year", created.Year,
		"month", created.Month,
		"limit", created.LimitAmount.String())

	return created, nil
}

// Update overwrites all fields of an owned budget. An absent CategoryID
// clears the category reference; a supplied id that resolves nothing leaves
// the stored category unchanged.
func (s *BudgetService) Update(ctx context.Context, user core.User, id int64, in core.BudgetInput) (core.Budget, error) {
	existing, err := s.budgets.GetBudget(ctx, id)
	if isNotFound(err) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if existing.UserID != user.ID {
		return core.Budget{}, core.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}

	existing.Year = in.Year
	existing.Month = in.Month
	existing.LimitAmount = in.LimitAmount
	if in.CategoryID == nil {
		existing.CategoryID = nil
	} else if err := s.resolveCategory(ctx, &existing, in.CategoryID); err != nil {
		return core.Budget{}, err
	}

	updated, err := s.budgets.UpdateBudget(ctx, existing)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

// Delete removes a budget by id, unconditionally. Ownership is not checked
// here; callers enforce it before invoking.
func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// StatusFor evaluates every budget of (user, year, month) independently,
// including duplicates for the same category. Spent sums the normalized
// amounts of the matching expenses in the budget's month; Remaining may go
// negative; PercentUsed is 0 whenever the limit is not positive.
func (s *BudgetService) StatusFor(ctx context.Context, user core.User, year, month int) ([]core.BudgetStatus, error) {
	budgets, err := s.budgets.ListBudgets(ctx, user.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, budget := range budgets {
		start, end := budget.Period()

		expenses, err := s.expenses.Query(ctx, user, budget.CategoryID, &start, &end)
		if err != nil {
			return nil, fmt.Errorf("query expenses for budget %d: %w", budget.ID, err)
		}

		spent := decimal.Zero
		for _, e := range expenses {
			spent = spent.Add(e.Amount)
		}

		name := core.AllExpensesLabel
		if budget.CategoryID != nil {
			if category, err := s.categories.GetCategory(ctx, *budget.CategoryID); err == nil {
				name = category.Name
			} else if !isNotFound(err) {
				return nil, fmt.Errorf("resolve budget category: %w", err)
			} else {
				name = ""
			}
		}

		statuses = append(statuses, core.BudgetStatus{
			BudgetID:     budget.ID,
			Year:         budget.Year,
			Month:        budget.Month,
			CategoryID:   budget.CategoryID,
			CategoryName: name,
			LimitAmount:  budget.LimitAmount,
			Spent:        spent,
			Remaining:    budget.LimitAmount.Sub(spent),
			PercentUsed:  core.PercentUsed(spent, budget.LimitAmount),
		})
	}
	return statuses, nil
}

func (s *BudgetService) resolveCategory(ctx context.Context, budget *core.Budget, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categories.GetCategory(ctx, *categoryID)
	switch {
	case err == nil:
		budget.CategoryID = &category.ID
	case isNotFound(err):
		// Ignored, same as the expense flow: the reference stays as it was.
	default:
		return fmt.Errorf("resolve category: %w", err)
	}
	return nil
}
