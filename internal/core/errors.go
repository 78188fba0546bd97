package core

// BusinessError is an expected failure with a stable code that a transport
// layer can translate into a response. It is distinct from validation errors
// (bad field values) and from programmer errors, which are returned wrapped
// and fail the whole operation.
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	// ErrBudgetRequired: recording an expense requires at least one budget.
	ErrBudgetRequired = &BusinessError{
		Code:    "BUDGET_REQUIRED",
		Message: "set up a budget before adding expenses",
	}

	// ErrBaseCurrencyRequired: recording an expense requires a base currency.
	ErrBaseCurrencyRequired = &BusinessError{
		Code:    "BASE_CURRENCY_REQUIRED",
		Message: "select a base currency before adding expenses",
	}

	ErrExpenseNotFound = &BusinessError{
		Code:    "EXPENSE_NOT_FOUND",
		Message: "expense not found",
	}

	ErrBudgetNotFound = &BusinessError{
		Code:    "BUDGET_NOT_FOUND",
		Message: "budget not found",
	}

	ErrCategoryNotFound = &BusinessError{
		Code:    "CATEGORY_NOT_FOUND",
		Message: "category not found",
	}

	// ErrUnauthorized: the entity exists but belongs to another user.
	ErrUnauthorized = &BusinessError{
		Code:    "UNAUTHORIZED",
		Message: "entity belongs to another user",
	}
)
