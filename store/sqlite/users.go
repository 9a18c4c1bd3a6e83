/*
users.go - User and invitation persistence

Implements ledger.UserStore and ledger.InvitationStore. Invitation tokens
are opaque UUIDs generated here so callers never construct their own.
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

// =============================================================================
// USERS
// =============================================================================

// CreateUser persists a new user account.
func (s *Store) CreateUser(ctx context.Context, u *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = ledger.UserID(uuid.New().String())
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("email %s already registered", u.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id ledger.UserID) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryUser(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail loads a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryUser(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *Store) queryUser(ctx context.Context, query string, arg any) (*ledger.User, error) {
	var u ledger.User
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// =============================================================================
// INVITATIONS
// =============================================================================

// CreateInvitation persists a new invitation with a fresh token.
func (s *Store) CreateInvitation(ctx context.Context, inv *ledger.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Token == "" {
		inv.Token = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = ledger.InvitationPending
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, group_id, email, invited_by, token, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.GroupID, inv.Email, inv.InvitedBy, inv.Token, inv.Status,
		inv.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// GetInvitationByToken loads an invitation by its token.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*ledger.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inv ledger.Invitation
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, email, invited_by, token, status, created_at
		 FROM invitations WHERE token = ?`, token,
	).Scan(&inv.ID, &inv.GroupID, &inv.Email, &inv.InvitedBy, &inv.Token, &inv.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inv, nil
}

// UpdateInvitationStatus overwrites the invitation status.
func (s *Store) UpdateInvitationStatus(ctx context.Context, id string, status ledger.InvitationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrInvitationNotFound
	}
	return nil
}
