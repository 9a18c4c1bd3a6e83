/*
payments.go - Settlement payment persistence

Implements ledger.PaymentStore. Status transitions are single-column
updates; the engine owns the legality of the transition.
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

// CreatePayment persists a new payment.
func (s *Store) CreatePayment(ctx context.Context, p *ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = ledger.PaymentID(uuid.New().String())
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments
		 (id, group_id, payer_id, payee_id, amount, status, expense_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.GroupID,
		p.PayerID,
		p.PayeeID,
		p.Amount.String(),
		p.Status,
		nullString(string(p.ExpenseID)),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment loads a single payment.
func (s *Store) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, payee_id, amount, status, expense_id, created_at, updated_at
		 FROM payments WHERE id = ?`, id)

	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return p, nil
}

// UpdatePaymentStatus overwrites the status of an existing payment.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id ledger.PaymentID, status ledger.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrPaymentNotFound
	}
	return nil
}

// ListPaymentsByGroup returns payments for the group, optionally filtered
// by status.
func (s *Store) ListPaymentsByGroup(ctx context.Context, groupID ledger.GroupID, status ledger.PaymentStatus) ([]*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, group_id, payer_id, payee_id, amount, status, expense_id, created_at, updated_at
	          FROM payments WHERE group_id = ?`
	args := []any{groupID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`

	return s.queryPayments(ctx, query, args...)
}

// ListPaymentsByExpense returns payments linked to the expense.
func (s *Store) ListPaymentsByExpense(ctx context.Context, expenseID ledger.ExpenseID) ([]*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx,
		`SELECT id, group_id, payer_id, payee_id, amount, status, expense_id, created_at, updated_at
		 FROM payments WHERE expense_id = ? ORDER BY created_at, id`, expenseID)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]*ledger.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*ledger.Payment, error) {
	var p ledger.Payment
	var expenseID sql.NullString
	var amount, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.GroupID, &p.PayerID, &p.PayeeID, &amount, &p.Status,
		&expenseID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ExpenseID = ledger.ExpenseID(expenseID.String)
	p.Amount = ledger.MustParseMoney(amount)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
