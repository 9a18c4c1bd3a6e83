/*
groups.go - Group and membership persistence

Implements ledger.GroupStore. Every group load derives TotalAmount from the
expense table; deleting a group removes its membership rows in the same
database transaction.
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

// CreateGroup persists a new group with its initial member list.
func (s *Store) CreateGroup(ctx context.Context, g *ledger.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = ledger.GroupID(uuid.New().String())
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.CreatedBy, g.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range g.Members {
		m := &g.Members[i]
		if m.JoinedAt.IsZero() {
			m.JoinedAt = g.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			g.ID, m.UserID, m.Role, m.JoinedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	return tx.Commit()
}

// GetGroup loads a group with its members and derived total.
func (s *Store) GetGroup(ctx context.Context, id ledger.GroupID) (*ledger.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &ledger.Group{ID: id}
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, created_by, created_at FROM groups WHERE id = ?`, id,
	).Scan(&g.Name, &g.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	members, err := s.loadMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = members

	total, err := s.sumExpenses(ctx, id)
	if err != nil {
		return nil, err
	}
	g.TotalAmount = total

	return g, nil
}

func (s *Store) loadMembers(ctx context.Context, id ledger.GroupID) ([]ledger.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role, joined_at FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()

	var members []ledger.Member
	for rows.Next() {
		var m ledger.Member
		var joined string
		if err := rows.Scan(&m.UserID, &m.Role, &joined); err != nil {
			return nil, err
		}
		m.JoinedAt, _ = time.Parse(time.RFC3339, joined)
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListGroupsByUser returns all groups the user belongs to.
func (s *Store) ListGroupsByUser(ctx context.Context, userID ledger.UserID) ([]*ledger.Group, error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE user_id = ? ORDER BY joined_at`, userID,
	)
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []ledger.GroupID
	for rows.Next() {
		var id ledger.GroupID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			s.mu.RUnlock()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	s.mu.RUnlock()

	groups := make([]*ledger.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DeleteGroup removes the group, its membership rows and its snapshots.
func (s *Store) DeleteGroup(ctx context.Context, id ledger.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrGroupNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM balances WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete balances: %w", err)
	}

	return tx.Commit()
}

// AddMember inserts a membership row.
func (s *Store) AddMember(ctx context.Context, groupID ledger.GroupID, m ledger.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		groupID, m.UserID, m.Role, m.JoinedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrAlreadyMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row and the member's snapshot.
func (s *Store) RemoveMember(ctx context.Context, groupID ledger.GroupID, userID ledger.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotMember
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM balances WHERE group_id = ? AND user_id = ?`, groupID, userID); err != nil {
		return fmt.Errorf("failed to remove balance: %w", err)
	}

	return tx.Commit()
}
