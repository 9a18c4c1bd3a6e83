/*
types.go - Core domain types for the expense-sharing engine

PURPOSE:
  Defines the fundamental types used throughout the engine:
  - Money: A decimal monetary amount (no floating-point drift)
  - Group/Expense/Payment/Balance: The persisted ledger entities
  - Typed IDs: Prevent mixing user, group, expense and payment identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so that 0.1 + 0.2 == 0.3
  2. Type Safety: Strong typing for IDs prevents swapping arguments
  3. Derivation: Balance snapshots and group totals are derived data;
     the expense and payment tables are the source of truth

USAGE:
  amount := ledger.NewMoney(49.50)
  p := ledger.Payment{
      GroupID: "grp-1",
      PayerID: "bob",
      PayeeID: "alice",
      Amount:  amount,
      Status:  ledger.PaymentPending,
  }

SEE ALSO:
  - balance.go: Balance calculation from expenses and payments
  - payment.go: Payment status state machine
  - store.go: Persistence interfaces over these types
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS - Type-safe IDs for each entity kind
// =============================================================================

type (
	UserID    string
	GroupID   string
	ExpenseID string
	PaymentID string
)

// =============================================================================
// MONEY - Decimal monetary amount
// =============================================================================

// Money is a monetary amount. All arithmetic in the engine goes through
// decimal.Decimal; float64 appears only at the API boundary.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// MustParseMoney parses a decimal string, returning zero on failure.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money            { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money            { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                   { return Money{Value: m.Value.Neg()} }
func (m Money) Div(n int64) Money            { return Money{Value: m.Value.Div(decimal.NewFromInt(n))} }
func (m Money) IsZero() bool                 { return m.Value.IsZero() }
func (m Money) IsNegative() bool             { return m.Value.IsNegative() }
func (m Money) IsPositive() bool             { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool           { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool     { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool        { return m.Value.LessThan(o.Value) }
func (m Money) Float64() float64             { f, _ := m.Value.Float64(); return f }
func (m Money) String() string               { return m.Value.String() }

// Round returns the amount rounded to two decimal places (cents).
// Used when persisting snapshots so equal shares of odd totals stay stable.
func (m Money) Round() Money { return Money{Value: m.Value.Round(2)} }

// =============================================================================
// USERS AND GROUPS
// =============================================================================

// User is a registered account. Authentication lives in the auth package;
// the engine only cares about identity.
type User struct {
	ID           UserID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Role of a member within a group. Admins (and the creator) hold the
// destructive capabilities: removing members, deleting expenses, inviting.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Member links a user to a group with a role.
type Member struct {
	UserID   UserID
	Role     Role
	JoinedAt time.Time
}

// Group is a set of users sharing expenses with an equal-cost split.
//
// TotalAmount is DERIVED: it is recomputed from the expense table whenever
// the group is loaded, never trusted as a running counter.
type Group struct {
	ID          GroupID
	Name        string
	Members     []Member
	TotalAmount Money
	CreatedBy   UserID
	CreatedAt   time.Time
}

// MemberIDs returns the deduplicated list of member user IDs.
func (g *Group) MemberIDs() []UserID {
	seen := make(map[UserID]bool, len(g.Members))
	ids := make([]UserID, 0, len(g.Members))
	for _, m := range g.Members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// RoleOf returns the role of the given user in the group.
// The creator is always treated as an admin, regardless of the stored role.
// Returns ("", false) if the user is not a member.
func (g *Group) RoleOf(userID UserID) (Role, bool) {
	if userID == g.CreatedBy {
		return RoleAdmin, true
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// IsAdminOrCreator reports whether the user holds destructive capabilities.
func (g *Group) IsAdminOrCreator(userID UserID) bool {
	role, ok := g.RoleOf(userID)
	return ok && role == RoleAdmin
}

// IsMember reports whether the user belongs to the group.
func (g *Group) IsMember(userID UserID) bool {
	_, ok := g.RoleOf(userID)
	return ok
}

// =============================================================================
// EXPENSES
// =============================================================================

// Category classifies an expense.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryRent          Category = "rent"
	CategoryTransport     Category = "transport"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryTravel        Category = "travel"
	CategoryOther         Category = "other"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryFood, CategoryRent, CategoryTransport, CategoryUtilities,
		CategoryEntertainment, CategoryTravel, CategoryOther:
		return true
	}
	return false
}

// RecurringFrequency for recurring expenses.
type RecurringFrequency string

const (
	FreqDaily   RecurringFrequency = "daily"
	FreqWeekly  RecurringFrequency = "weekly"
	FreqMonthly RecurringFrequency = "monthly"
	FreqYearly  RecurringFrequency = "yearly"
)

// Expense is a recorded cost paid by one user, optionally shared via a group.
// GroupID == "" means a private expense that never enters group balances.
type Expense struct {
	ID                 ExpenseID
	UserID             UserID
	GroupID            GroupID
	Amount             Money
	Category           Category
	Description        string
	TransactionDate    time.Time
	IsRecurring        bool
	RecurringFrequency RecurringFrequency
	CreatedAt          time.Time
}

// IsPrivate reports whether the expense belongs to no group.
func (e *Expense) IsPrivate() bool { return e.GroupID == "" }

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentStatus is the lifecycle state of a settlement payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// ValidPaymentStatus reports whether s is a known status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Payment is a directed transfer from payer to payee intended to settle debt.
// Only the pending -> completed transition affects balances.
type Payment struct {
	ID        PaymentID
	GroupID   GroupID
	PayerID   UserID
	PayeeID   UserID
	Amount    Money
	Status    PaymentStatus
	ExpenseID ExpenseID // optional link to the expense being settled
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// BALANCE SNAPSHOTS
// =============================================================================

// Balance is the derived per-(group,user) snapshot of net position.
// It is a read cache: it can always be rebuilt from expenses + payments.
//
// Sign convention: positive NetBalance means the group owes this member money;
// negative means this member owes the group.
type Balance struct {
	GroupID          GroupID
	UserID           UserID
	TotalContributed Money // expenses paid + settlement payments made
	TotalOwed        Money // equal share of the group total
	NetBalance       Money
	UpdatedAt        time.Time
}

// =============================================================================
// INVITATIONS
// =============================================================================

// InvitationStatus is the lifecycle state of a group invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation invites an email address into a group. Accepting the token
// adds the (now registered) user as a member.
type Invitation struct {
	ID        string
	GroupID   GroupID
	Email     string
	InvitedBy UserID
	Token     string
	Status    InvitationStatus
	CreatedAt time.Time
}
