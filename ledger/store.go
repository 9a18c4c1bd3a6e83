/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  never touches SQL; it works against these interfaces so SQLite can be
  swapped for PostgreSQL (or an in-memory fake in tests).

KEY INTERFACES:
  GroupStore:   Group and membership records
  ExpenseStore: Raw expense records + per-group sums
  PaymentStore: Payment records with status filtering
  BalanceStore: Derived (group,user) snapshot upserts
  Store:        Union of the above plus users and invitations

DERIVED DATA CONTRACT:
  SumExpensesByGroup is the single source for a group's total. Handlers
  never maintain a running counter; every read re-derives the total from
  the expense table.

SEE ALSO:
  - store/sqlite/: Production implementation
  - balance.go: Consumes these interfaces for recomputation
*/
package ledger

import "context"

// =============================================================================
// GROUPS
// =============================================================================

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup persists a new group with its initial member list.
	// Generates ID and CreatedAt if unset.
	CreateGroup(ctx context.Context, g *Group) error

	// GetGroup loads a group with members and derived TotalAmount.
	// Returns ErrGroupNotFound if absent.
	GetGroup(ctx context.Context, id GroupID) (*Group, error)

	// ListGroupsByUser returns all groups the user is a member of.
	ListGroupsByUser(ctx context.Context, userID UserID) ([]*Group, error)

	// DeleteGroup removes the group and its membership rows.
	// Callers enforce the "no expenses remain" precondition first.
	DeleteGroup(ctx context.Context, id GroupID) error

	// AddMember inserts a membership row. Returns ErrAlreadyMember on duplicate.
	AddMember(ctx context.Context, groupID GroupID, m Member) error

	// RemoveMember deletes a membership row. Returns ErrNotMember if absent.
	RemoveMember(ctx context.Context, groupID GroupID, userID UserID) error
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseStore persists expense records.
type ExpenseStore interface {
	// CreateExpense persists a new expense. Generates ID and CreatedAt if unset.
	CreateExpense(ctx context.Context, e *Expense) error

	// GetExpense returns ErrExpenseNotFound if absent.
	GetExpense(ctx context.Context, id ExpenseID) (*Expense, error)

	// UpdateExpense overwrites mutable fields of an existing expense.
	UpdateExpense(ctx context.Context, e *Expense) error

	// DeleteExpense removes the expense row.
	DeleteExpense(ctx context.Context, id ExpenseID) error

	// ListExpensesByGroup returns all expenses attached to the group.
	ListExpensesByGroup(ctx context.Context, groupID GroupID) ([]*Expense, error)

	// ListExpensesByUser returns the user's expenses, private ones included.
	ListExpensesByUser(ctx context.Context, userID UserID) ([]*Expense, error)

	// SumExpensesByGroup derives the group total from the expense table.
	SumExpensesByGroup(ctx context.Context, groupID GroupID) (Money, error)
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentStore persists settlement payments.
type PaymentStore interface {
	// CreatePayment persists a new payment. Generates ID and CreatedAt if unset.
	CreatePayment(ctx context.Context, p *Payment) error

	// GetPayment returns ErrPaymentNotFound if absent.
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// UpdatePaymentStatus overwrites the status of an existing payment.
	UpdatePaymentStatus(ctx context.Context, id PaymentID, status PaymentStatus) error

	// ListPaymentsByGroup returns payments for the group. An empty status
	// filter returns all payments.
	ListPaymentsByGroup(ctx context.Context, groupID GroupID, status PaymentStatus) ([]*Payment, error)

	// ListPaymentsByExpense returns payments linked to the expense.
	ListPaymentsByExpense(ctx context.Context, expenseID ExpenseID) ([]*Payment, error)
}

// =============================================================================
// BALANCE SNAPSHOTS
// =============================================================================

// BalanceStore persists derived balance snapshots.
type BalanceStore interface {
	// UpsertBalance creates or overwrites the (group,user) snapshot.
	UpsertBalance(ctx context.Context, b *Balance) error

	// UpsertBalances writes several snapshots atomically.
	UpsertBalances(ctx context.Context, balances []*Balance) error

	// GetBalance returns the stored snapshot, or nil if never computed.
	GetBalance(ctx context.Context, groupID GroupID, userID UserID) (*Balance, error)

	// ListBalancesByGroup returns all stored snapshots for the group.
	ListBalancesByGroup(ctx context.Context, groupID GroupID) ([]*Balance, error)
}

// =============================================================================
// USERS AND INVITATIONS
// =============================================================================

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser persists a new user. Generates ID and CreatedAt if unset.
	CreateUser(ctx context.Context, u *User) error

	// GetUser returns ErrUserNotFound if absent.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// GetUserByEmail returns ErrUserNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// InvitationStore persists group invitations.
type InvitationStore interface {
	// CreateInvitation persists a new invitation with a fresh token.
	CreateInvitation(ctx context.Context, inv *Invitation) error

	// GetInvitationByToken returns ErrInvitationNotFound if absent.
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)

	// UpdateInvitationStatus overwrites the invitation status.
	UpdateInvitationStatus(ctx context.Context, id string, status InvitationStatus) error
}

// Store is the full persistence surface the engine and API require.
type Store interface {
	GroupStore
	ExpenseStore
	PaymentStore
	BalanceStore
	UserStore
	InvitationStore

	Close() error
}
