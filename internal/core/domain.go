// Package core holds the domain model of the expense tracker: users,
// categories, expenses, budgets and the business errors the services raise.
//
// Monetary amounts are decimal.Decimal values. An Expense carries two of
// them: Amount is denominated in the base currency the owner had at the time
// of the write, OriginalAmount/OriginalCurrency record the value as entered
// and are never reconverted afterwards, even if the owner later changes the
// base currency.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseCurrency is assigned on first budget creation when the user has
// no base currency yet and the request does not propose one.
const DefaultBaseCurrency = "INR"

// UncategorizedLabel groups expenses without a category in summaries.
const UncategorizedLabel = "Uncategorized"

// AllExpensesLabel is the display name of a budget with no category.
const AllExpensesLabel = "All expenses"

type (
	// User owns categories, expenses and budgets. BaseCurrency is empty
	// until first set; the budget-create flow sets it exactly once.
	User struct {
		ID           int64
		Email        string
		BaseCurrency string
	}

	Category struct {
		ID     int64
		UserID int64
		Name   string
		Color  string
	}

	// Expense is a persisted expense. CategoryName is resolved on read and
	// is empty when CategoryID is nil.
	Expense struct {
		ID               int64
		UserID           int64
		CategoryID       *int64
		CategoryName     string
		Amount           decimal.Decimal
		OriginalAmount   decimal.Decimal
		OriginalCurrency string
		Date             time.Time
		Description      string
		Recurring        bool
	}

	// Budget limits spending for one (year, month). A nil CategoryID means
	// the budget applies to all of the user's expenses in the period.
	// Multiple budgets may exist for the same (user, category, period).
	Budget struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Year        int
		Month       int
		LimitAmount decimal.Decimal
	}

	// ExpenseInput is the as-entered payload of a record/update request.
	ExpenseInput struct {
		Amount      decimal.Decimal
		Currency    string
		Date        time.Time
		Description string
		CategoryID  *int64
		Recurring   bool
	}

	// BudgetInput is the payload of a budget create/update request.
	// Currency is only honored on create, to seed the user's base currency.
	BudgetInput struct {
		Year        int
		Month       int
		LimitAmount decimal.Decimal
		Currency    string
		CategoryID  *int64
	}

	// ExpenseFilter restricts an expense query. Nil fields impose no
	// restriction; Start and End are inclusive.
	ExpenseFilter struct {
		UserID     int64
		CategoryID *int64
		Start      *time.Time
		End        *time.Time
	}

	// Summary is the result of summarizing a filtered expense set.
	// The values of ByCategory always add up to Total.
	Summary struct {
		Total      decimal.Decimal
		ByCategory map[string]decimal.Decimal
	}

	// MonthlyTotal is one entry of a monthly summary, labeled "YYYY-MM".
	MonthlyTotal struct {
		Month string
		Total decimal.Decimal
	}

	// BudgetStatus reports spend-vs-limit for one budget in its period.
	// Remaining goes negative on overspend.
	BudgetStatus struct {
		BudgetID     int64
		Year         int
		Month        int
		CategoryID   *int64
		CategoryName string
		LimitAmount  decimal.Decimal
		Spent        decimal.Decimal
		Remaining    decimal.Decimal
		PercentUsed  int
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be non-negative")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter code")
	ErrInvalidYear        = errors.New("year must be between 2000 and 2100")
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrEmptyDescription   = errors.New("empty description")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrEmptyCategoryName  = errors.New("empty category name")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (in ExpenseInput) Validate() error {
	if in.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !validCurrencyCode(in.Currency) {
		return ErrInvalidCurrency
	}
	if in.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if len(in.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (in BudgetInput) Validate() error {
	if in.Year < 2000 || in.Year > 2100 {
		return ErrInvalidYear
	}
	if in.Month < 1 || in.Month > 12 {
		return ErrInvalidMonth
	}
	if in.LimitAmount.IsNegative() {
		return ErrInvalidAmount
	}
	// Blank is allowed: the user's base currency (or the default) applies.
	if strings.TrimSpace(in.Currency) != "" && !validCurrencyCode(in.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

// HasBaseCurrency reports whether the user selected a base currency.
func (u User) HasBaseCurrency() bool {
	return strings.TrimSpace(u.BaseCurrency) != ""
}

// DisplayCategory returns the grouping name used in summaries.
func (e Expense) DisplayCategory() string {
	if e.CategoryID == nil || e.CategoryName == "" {
		return UncategorizedLabel
	}
	return e.CategoryName
}

// Period returns the inclusive date range of the budget's month.
func (b Budget) Period() (start, end time.Time) {
	start = time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

func validCurrencyCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
