package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/policy"
)

const expenseColumns = "id, description, amount_cents, category, expense_date, notes, created_at, user_id"

// CreateExpense persists a new expense owned by e.UserID and returns the
// stored row with its assigned id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (description, amount_cents, category, expense_date, notes, user_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Description, e.Amount.Cents, e.Category, e.Date.Key(), e.Notes, e.UserID)
	if err != nil {
		return core.Expense{}, &core.StorageError{Op: "create expense", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, &core.StorageError{Op: "create expense", Err: err}
	}
	return r.GetExpense(ctx, policy.Scope{All: true}, id)
}

// GetExpense loads a single expense visible under scope. A row that
// exists but belongs to another owner is reported as not found, same as
// a row that does not exist at all.
func (r *SQLiteRepository) GetExpense(ctx context.Context, scope policy.Scope, id int64) (core.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE id = ?"
	args := []any{id}
	if !scope.All {
		query += " AND user_id = ?"
		args = append(args, scope.OwnerID)
	}

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, &core.StorageError{Op: "get expense", Err: err}
	}
	return e, nil
}

// UpdateExpense rewrites the mutable fields of an expense in place,
// filtered by scope so an out-of-scope row can never be touched. The
// owner of the row is never changed.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, scope policy.Scope, e core.Expense) error {
	query := `
		UPDATE expenses
		SET description = ?, amount_cents = ?, category = ?, expense_date = ?, notes = ?
		WHERE id = ?
	`
	args := []any{e.Description, e.Amount.Cents, e.Category, e.Date.Key(), e.Notes, e.ID}
	if !scope.All {
		query += " AND user_id = ?"
		args = append(args, scope.OwnerID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &core.StorageError{Op: "update expense", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StorageError{Op: "update expense", Err: err}
	}
	if n == 1 {
		return nil
	}

	// Zero rows: the row is gone, outside the caller's scope, or the
	// write silently missed. The first two are a not-found outcome; the
	// last is a fault worth surfacing.
	var owner int64
	err = r.db.QueryRowContext(ctx,
		"SELECT user_id FROM expenses WHERE id = ?", e.ID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return &core.StorageError{Op: "update expense", Err: err}
	}
	if !scope.Allows(owner) {
		return core.ErrNotFound
	}
	return &core.StorageError{Op: "update expense", Err: fmt.Errorf("row %d present but update affected 0 rows", e.ID)}
}

// DeleteExpense removes an expense visible under scope. Deleting a row
// that is already gone (or was never visible) succeeds: the caller's
// desired end state holds either way.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, scope policy.Scope, id int64) error {
	query := "DELETE FROM expenses WHERE id = ?"
	args := []any{id}
	if !scope.All {
		query += " AND user_id = ?"
		args = append(args, scope.OwnerID)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &core.StorageError{Op: "delete expense", Err: err}
	}
	return nil
}

// ListExpenses returns the expenses visible under scope, newest first.
// A zero start or end leaves that side of the date window open. Date
// filtering compares the day-granular keys, so an expense on the end day
// is included.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, scope policy.Scope, start, end time.Time) ([]core.Expense, error) {
	var (
		conds []string
		args  []any
	)
	if !start.IsZero() {
		conds = append(conds, "expense_date >= ?")
		args = append(args, core.DateOf(start).Key())
	}
	if !end.IsZero() {
		conds = append(conds, "expense_date <= ?")
		args = append(args, core.DateOf(end).Key())
	}
	if !scope.All {
		conds = append(conds, "user_id = ?")
		args = append(args, scope.OwnerID)
	}

	query := "SELECT " + expenseColumns + " FROM expenses"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.StorageError{Op: "list expenses", Err: err}
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "list expenses", Err: err}
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list expenses", Err: err}
	}
	return expenses, nil
}

// ExpenseExists reports whether a row with this id exists at all,
// regardless of owner. Used to tell a vanished row from an out-of-scope
// one when a scoped write affects nothing.
func (r *SQLiteRepository) ExpenseExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM expenses WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, &core.StorageError{Op: "expense exists", Err: err}
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		dateKey string
	)
	err := row.Scan(&e.ID, &e.Description, &e.Amount.Cents, &e.Category, &dateKey, &e.Notes, &e.CreatedAt, &e.UserID)
	if err != nil {
		return core.Expense{}, err
	}
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", dateKey, err)
	}
	e.Date = core.DateOf(t)
	return e, nil
}
