package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/rates"
	"spendwise/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]core.User
	categories map[int64]core.Category
	expenses   map[int64]core.Expense
	budgets    map[int64]core.Budget
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int64]core.User),
		categories: make(map[int64]core.Category),
		expenses:   make(map[int64]core.Expense),
		budgets:    make(map[int64]core.Budget),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(u core.User) core.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.id()
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addCategory(c core.Category) core.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.categories[c.ID] = c
	return c
}

func (f *fakeStore) addBudget(b core.Budget) core.Budget {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.id()
	f.budgets[b.ID] = b
	return b
}

func (f *fakeStore) SetBaseCurrency(ctx context.Context, userID int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.BaseCurrency = code
	f.users[userID] = u
	return nil
}

func (f *fakeStore) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.expenses[e.ID]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	e.UserID = existing.UserID
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Expense
	for _, e := range f.expenses {
		if e.UserID != filter.UserID {
			continue
		}
		if filter.CategoryID != nil {
			if e.CategoryID == nil || *e.CategoryID != *filter.CategoryID {
				continue
			}
		}
		if filter.Start != nil && e.Date.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && e.Date.After(*filter.End) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.id()
	f.budgets[b.ID] = b
	return b, nil
}

func (f *fakeStore) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.budgets[id]
	if !ok {
		return core.Budget{}, storage.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.budgets[b.ID]; !ok {
		return core.Budget{}, storage.ErrNotFound
	}
	f.budgets[b.ID] = b
	return b, nil
}

func (f *fakeStore) DeleteBudget(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.budgets, id)
	return nil
}

func (f *fakeStore) CountBudgets(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.budgets {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListBudgets(ctx context.Context, userID int64, year, month int) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Budget
	for _, b := range f.budgets {
		if b.UserID == userID && b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

// tableProvider feeds the real converter a fixed USD rate table.
type tableProvider struct {
	table rates.Table
}

func (p tableProvider) Rates(ctx context.Context, base string) rates.Table {
	return p.table
}

func testConverter() Converter {
	return rates.NewConverter(tableProvider{table: rates.Table{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.85"),
		"GBP": decimal.RequireFromString("0.73"),
	}})
}

type publishedEvent struct {
	id     int64
	action string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishExpenseEvent(ctx context.Context, id int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{id: id, action: action})
	return nil
}
