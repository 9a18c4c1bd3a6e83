/*
balances.go - Derived balance snapshot persistence

Implements ledger.BalanceStore. Snapshots are upserted on the (group,user)
primary key; UpsertBalances writes a whole group's recompute atomically so
readers never observe a half-updated group.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/divvy/expense-engine/ledger"
)

const upsertBalanceSQL = `
	INSERT INTO balances (group_id, user_id, total_contributed, total_owed, net_balance, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(group_id, user_id) DO UPDATE SET
		total_contributed = excluded.total_contributed,
		total_owed = excluded.total_owed,
		net_balance = excluded.net_balance,
		updated_at = excluded.updated_at`

// UpsertBalance creates or overwrites a single (group,user) snapshot.
func (s *Store) UpsertBalance(ctx context.Context, b *ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, upsertBalanceSQL,
		b.GroupID, b.UserID,
		b.TotalContributed.String(), b.TotalOwed.String(), b.NetBalance.String(),
		b.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

// UpsertBalances writes several snapshots in one database transaction.
func (s *Store) UpsertBalances(ctx context.Context, balances []*ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range balances {
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, upsertBalanceSQL,
			b.GroupID, b.UserID,
			b.TotalContributed.String(), b.TotalOwed.String(), b.NetBalance.String(),
			b.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert balance: %w", err)
		}
	}

	return tx.Commit()
}

// GetBalance returns the stored snapshot, or nil if never computed.
func (s *Store) GetBalance(ctx context.Context, groupID ledger.GroupID, userID ledger.UserID) (*ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT group_id, user_id, total_contributed, total_owed, net_balance, updated_at
		 FROM balances WHERE group_id = ? AND user_id = ?`, groupID, userID)

	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

// ListBalancesByGroup returns all stored snapshots for the group.
func (s *Store) ListBalancesByGroup(ctx context.Context, groupID ledger.GroupID) ([]*ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id, total_contributed, total_owed, net_balance, updated_at
		 FROM balances WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*ledger.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func scanBalance(row rowScanner) (*ledger.Balance, error) {
	var b ledger.Balance
	var contributed, owed, net, updatedAt string

	err := row.Scan(&b.GroupID, &b.UserID, &contributed, &owed, &net, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.TotalContributed = ledger.MustParseMoney(contributed)
	b.TotalOwed = ledger.MustParseMoney(owed)
	b.NetBalance = ledger.MustParseMoney(net)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}
