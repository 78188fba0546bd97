// Package storage persists users, categories, expenses and budgets in
// SQLite. Amounts travel as decimal strings so no precision is lost between
// the services and the database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"spendwise/internal/core"
)

// ErrNotFound is returned when a lookup by id resolves nothing. The
// services map it onto the entity-specific business errors.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, email string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email) VALUES (?)`, email)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Email: email}, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	var base sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, base_currency FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &base)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.BaseCurrency = base.String
	return u, nil
}

// SetBaseCurrency persists the user's base currency. It does not touch
// existing expenses: their amounts stay denominated in the base currency
// that was current when they were written.
func (r *SQLiteRepository) SetBaseCurrency(ctx context.Context, userID int64, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET base_currency = ? WHERE id = ?`, code, userID)
	if err != nil {
		return fmt.Errorf("set base currency: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set base currency rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "base currency set", "user_id", userID, "currency", code)
	return nil
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, color) VALUES (?, ?, ?)`,
		c.UserID, c.Name, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes the category only. Expenses and budgets keep their
// dangling reference; cascading is a caller concern.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses
		 (user_id, category_id, amount, original_amount, original_currency, date, description, recurring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Amount.String(), e.OriginalAmount.String(),
		e.OriginalCurrency, e.Date.Format(dateLayout), e.Description, e.Recurring)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"amount", e.Amount.String(),
		"original_amount", e.OriginalAmount.String(),
		"original_currency", e.OriginalCurrency)

	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectExpense+` WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET
		 category_id = ?, amount = ?, original_amount = ?, original_currency = ?,
		 date = ?, description = ?, recurring = ?, exported = 0,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.CategoryID, e.Amount.String(), e.OriginalAmount.String(), e.OriginalCurrency,
		e.Date.Format(dateLayout), e.Description, e.Recurring, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense rows: %w", err)
	}
	if n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses returns the user's expenses, optionally restricted to one
// category and an inclusive date range. Order follows insertion id and is
// deterministic but otherwise unspecified.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	query := selectExpense + ` WHERE e.user_id = ?`
	args := []any{f.UserID}

	if f.CategoryID != nil {
		query += ` AND e.category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.Start != nil {
		query += ` AND e.date >= ?`
		args = append(args, f.Start.Format(dateLayout))
	}
	if f.End != nil {
		query += ` AND e.date <= ?`
		args = append(args, f.End.Format(dateLayout))
	}
	query += ` ORDER BY e.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectExpense = `
	SELECT e.id, e.user_id, e.category_id, c.name,
	       e.amount, e.original_amount, e.original_currency,
	       e.date, e.description, e.recurring
	FROM expenses e
	LEFT JOIN categories c ON c.id = e.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var categoryID sql.NullInt64
	var categoryName sql.NullString
	var amount, original, date string

	err := row.Scan(&e.ID, &e.UserID, &categoryID, &categoryName,
		&amount, &original, &e.OriginalCurrency,
		&date, &e.Description, &e.Recurring)
	if err != nil {
		return core.Expense{}, err
	}

	if categoryID.Valid {
		id := categoryID.Int64
		e.CategoryID = &id
		e.CategoryName = categoryName.String
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.OriginalAmount, err = decimal.NewFromString(original); err != nil {
		return core.Expense{}, fmt.Errorf("parse original amount %q: %w", original, err)
	}
	if e.Date, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return core.Expense{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return e, nil
}

// ListUnexported returns expenses the export worker has not mirrored yet.
// This backs the periodic catch-up pass for lost events.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		selectExpense+` WHERE e.exported = 0 ORDER BY e.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	return nil
}

// --- budgets ---

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, year, month, limit_amount)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Year, b.Month, b.LimitAmount.String())
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}
	b.ID = id
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, year, month, limit_amount
		 FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, year = ?, month = ?, limit_amount = ?
		 WHERE id = ?`,
		b.CategoryID, b.Year, b.Month, b.LimitAmount.String(), b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget rows: %w", err)
	}
	if n == 0 {
		return core.Budget{}, ErrNotFound
	}
	return b, nil
}

// DeleteBudget deletes by id without an ownership check; callers are
// expected to have verified ownership.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountBudgets(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count budgets: %w", err)
	}
	return n, nil
}

// ListBudgets returns every budget for (user, year, month). Several budgets
// may target the same category; the evaluator handles each independently.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64, year, month int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, year, month, limit_amount
		 FROM budgets WHERE user_id = ? AND year = ? AND month = ? ORDER BY id`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var b core.Budget
	var categoryID sql.NullInt64
	var limit string

	err := row.Scan(&b.ID, &b.UserID, &categoryID, &b.Year, &b.Month, &limit)
	if err != nil {
		return core.Budget{}, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		b.CategoryID = &id
	}
	if b.LimitAmount, err = decimal.NewFromString(limit); err != nil {
		return core.Budget{}, fmt.Errorf("parse limit %q: %w", limit, err)
	}
	return b, nil
}
