package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpenseInputValidate(t *testing.T) {
	valid := ExpenseInput{
		Amount:      dec("10.00"),
		Currency:    "EUR",
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: "groceries",
	}

	tests := []struct {
		name    string
		mutate  func(*ExpenseInput)
		wantErr error
	}{
		{"valid", func(in *ExpenseInput) {}, nil},
		{"zero amount ok", func(in *ExpenseInput) { in.Amount = dec("0") }, nil},
		{"negative amount", func(in *ExpenseInput) { in.Amount = dec("-1") }, ErrInvalidAmount},
		{"bad currency", func(in *ExpenseInput) { in.Currency = "EURO" }, ErrInvalidCurrency},
		{"numeric currency", func(in *ExpenseInput) { in.Currency = "12E" }, ErrInvalidCurrency},
		{"zero date", func(in *ExpenseInput) { in.Date = time.Time{} }, ErrZeroDate},
		{"blank description", func(in *ExpenseInput) { in.Description = "   " }, ErrEmptyDescription},
		{"long description", func(in *ExpenseInput) { in.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudgetInputValidate(t *testing.T) {
	valid := BudgetInput{Year: 2025, Month: 6, LimitAmount: dec("1000")}

	tests := []struct {
		name    string
		mutate  func(*BudgetInput)
		wantErr error
	}{
		{"valid", func(in *BudgetInput) {}, nil},
		{"blank currency ok", func(in *BudgetInput) { in.Currency = "" }, nil},
		{"valid currency", func(in *BudgetInput) { in.Currency = "usd" }, nil},
		{"year too low", func(in *BudgetInput) { in.Year = 1999 }, ErrInvalidYear},
		{"year too high", func(in *BudgetInput) { in.Year = 2101 }, ErrInvalidYear},
		{"month zero", func(in *BudgetInput) { in.Month = 0 }, ErrInvalidMonth},
		{"month thirteen", func(in *BudgetInput) { in.Month = 13 }, ErrInvalidMonth},
		{"negative limit", func(in *BudgetInput) { in.LimitAmount = dec("-5") }, ErrInvalidAmount},
		{"zero limit ok", func(in *BudgetInput) { in.LimitAmount = dec("0") }, nil},
		{"bad currency", func(in *BudgetInput) { in.Currency = "EU" }, ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseDisplayCategory(t *testing.T) {
	id := int64(3)
	e := Expense{CategoryID: &id, CategoryName: "Food"}
	if got := e.DisplayCategory(); got != "Food" {
		t.Errorf("DisplayCategory() = %q, want Food", got)
	}
	if got := (Expense{}).DisplayCategory(); got != UncategorizedLabel {
		t.Errorf("DisplayCategory() = %q, want %q", got, UncategorizedLabel)
	}
}

func TestBudgetPeriod(t *testing.T) {
	b := Budget{Year: 2024, Month: 2}
	start, end := b.Period()
	if start != time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("start = %v", start)
	}
	// 2024 is a leap year.
	if end != time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) {
		t.Errorf("end = %v", end)
	}

	b = Budget{Year: 2025, Month: 12}
	start, end = b.Period()
	if start != time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("december start = %v", start)
	}
	if end != time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC) {
		t.Errorf("december end = %v", end)
	}
}

func TestBusinessErrorCodes(t *testing.T) {
	if ErrBudgetRequired.Code != "BUDGET_REQUIRED" {
		t.Errorf("unexpected code %q", ErrBudgetRequired.Code)
	}
	if ErrBaseCurrencyRequired.Code != "BASE_CURRENCY_REQUIRED" {
		t.Errorf("unexpected code %q", ErrBaseCurrencyRequired.Code)
	}

	var be *BusinessError
	if !errors.As(error(ErrUnauthorized), &be) {
		t.Error("BusinessError should be extractable with errors.As")
	}
}

func TestUserHasBaseCurrency(t *testing.T) {
	if (User{}).HasBaseCurrency() {
		t.Error("empty base currency should report unset")
	}
	if (User{BaseCurrency: "  "}).HasBaseCurrency() {
		t.Error("blank base currency should report unset")
	}
	if !(User{BaseCurrency: "USD"}).HasBaseCurrency() {
		t.Error("USD should report set")
	}
}
