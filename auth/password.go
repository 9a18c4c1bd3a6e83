/*
password.go - Password registration and verification

PURPOSE:
  bcrypt-based credential handling. Registration hashes the password and
  persists the user; authentication compares against the stored hash.
  The engine itself never sees a password.

SEE ALSO:
  - jwt.go: Session token issuing after authentication
*/
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/divvy/expense-engine/ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// Authenticator implements password-based authentication using bcrypt.
type Authenticator struct {
	users ledger.UserStore
}

// NewAuthenticator creates a password authenticator over the user store.
func NewAuthenticator(users ledger.UserStore) *Authenticator {
	return &Authenticator{users: users}
}

// Register creates a new account with a hashed password.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (*ledger.User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	if existing, err := a.users.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &ledger.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*ledger.User, error) {
	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
