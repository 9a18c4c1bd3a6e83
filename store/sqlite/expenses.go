/*
expenses.go - Expense persistence

Implements ledger.ExpenseStore. Amounts are stored as decimal strings to
preserve precision; SumExpensesByGroup folds them in Go rather than with
SQL SUM(), which would coerce to float.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/divvy/expense-engine/ledger"
)

// CreateExpense persists a new expense.
func (s *Store) CreateExpense(ctx context.Context, e *ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = ledger.ExpenseID(uuid.New().String())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.TransactionDate.IsZero() {
		e.TransactionDate = e.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses
		 (id, user_id, group_id, amount, category, description, transaction_date,
		  is_recurring, recurring_frequency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.UserID,
		nullString(string(e.GroupID)),
		e.Amount.String(),
		e.Category,
		e.Description,
		e.TransactionDate.Format(time.RFC3339),
		e.IsRecurring,
		nullString(string(e.RecurringFrequency)),
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// GetExpense loads a single expense.
func (s *Store) GetExpense(ctx context.Context, id ledger.ExpenseID) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, amount, category, description, transaction_date,
		        is_recurring, recurring_frequency, created_at
		 FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}
	return e, nil
}

// UpdateExpense overwrites the mutable fields of an existing expense.
func (s *Store) UpdateExpense(ctx context.Context, e *ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses
		 SET amount = ?, category = ?, description = ?, transaction_date = ?,
		     is_recurring = ?, recurring_frequency = ?
		 WHERE id = ?`,
		e.Amount.String(),
		e.Category,
		e.Description,
		e.TransactionDate.Format(time.RFC3339),
		e.IsRecurring,
		nullString(string(e.RecurringFrequency)),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

// DeleteExpense removes the expense row.
func (s *Store) DeleteExpense(ctx context.Context, id ledger.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

// ListExpensesByGroup returns all expenses attached to the group.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID ledger.GroupID) ([]*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExpenses(ctx,
		`SELECT id, user_id, group_id, amount, category, description, transaction_date,
		        is_recurring, recurring_frequency, created_at
		 FROM expenses WHERE group_id = ? ORDER BY transaction_date, id`, groupID)
}

// ListExpensesByUser returns the user's expenses, private ones included.
func (s *Store) ListExpensesByUser(ctx context.Context, userID ledger.UserID) ([]*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExpenses(ctx,
		`SELECT id, user_id, group_id, amount, category, description, transaction_date,
		        is_recurring, recurring_frequency, created_at
		 FROM expenses WHERE user_id = ? ORDER BY transaction_date DESC, id`, userID)
}

// SumExpensesByGroup derives the group total from the expense table.
func (s *Store) SumExpensesByGroup(ctx context.Context, groupID ledger.GroupID) (ledger.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumExpenses(ctx, groupID)
}

// sumExpenses is the lock-free variant used inside GetGroup.
func (s *Store) sumExpenses(ctx context.Context, groupID ledger.GroupID) (ledger.Money, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount FROM expenses WHERE group_id = ?`, groupID)
	if err != nil {
		return ledger.ZeroMoney(), fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	total := ledger.ZeroMoney()
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return ledger.ZeroMoney(), err
		}
		total = total.Add(ledger.MustParseMoney(amount))
	}
	return total, rows.Err()
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]*ledger.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*ledger.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*ledger.Expense, error) {
	var e ledger.Expense
	var groupID, description, freq sql.NullString
	var amount, txDate, createdAt string

	err := row.Scan(&e.ID, &e.UserID, &groupID, &amount, &e.Category, &description,
		&txDate, &e.IsRecurring, &freq, &createdAt)
	if err != nil {
		return nil, err
	}

	e.GroupID = ledger.GroupID(groupID.String)
	e.Description = description.String
	e.RecurringFrequency = ledger.RecurringFrequency(freq.String)
	e.Amount = ledger.MustParseMoney(amount)
	e.TransactionDate, _ = time.Parse(time.RFC3339, txDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}
