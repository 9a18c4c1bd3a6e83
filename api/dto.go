/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

ENVELOPE:
  Every response is wrapped:
    success: {"success": true,  "data": ...}
    failure: {"success": false, "error": "..."}

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/divvy/expense-engine/ledger"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// AUTH
// =============================================================================

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponseDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// =============================================================================
// GROUPS
// =============================================================================

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"` // user IDs beyond the creator
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type MemberDTO struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at,omitempty"`
}

type GroupDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Members     []MemberDTO `json:"members"`
	TotalAmount float64     `json:"total_amount"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// =============================================================================
// EXPENSES
// =============================================================================

type CreateExpenseRequest struct {
	GroupID            string  `json:"group_id,omitempty"`
	Amount             float64 `json:"amount"`
	Category           string  `json:"category"`
	Description        string  `json:"description,omitempty"`
	TransactionDate    string  `json:"transaction_date,omitempty"` // YYYY-MM-DD
	IsRecurring        bool    `json:"is_recurring,omitempty"`
	RecurringFrequency string  `json:"recurring_frequency,omitempty"`
}

type UpdateExpenseRequest struct {
	Amount             *float64 `json:"amount,omitempty"`
	Category           *string  `json:"category,omitempty"`
	Description        *string  `json:"description,omitempty"`
	TransactionDate    *string  `json:"transaction_date,omitempty"`
	IsRecurring        *bool    `json:"is_recurring,omitempty"`
	RecurringFrequency *string  `json:"recurring_frequency,omitempty"`
}

type ExpenseDTO struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	GroupID            string  `json:"group_id,omitempty"`
	Amount             float64 `json:"amount"`
	Category           string  `json:"category"`
	Description        string  `json:"description,omitempty"`
	TransactionDate    string  `json:"transaction_date"`
	IsRecurring        bool    `json:"is_recurring"`
	RecurringFrequency string  `json:"recurring_frequency,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type CreatePaymentRequest struct {
	GroupID   string  `json:"group_id"`
	PayerID   string  `json:"payer_id"`
	PayeeID   string  `json:"payee_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status,omitempty"` // pending (default) or completed
	ExpenseID string  `json:"expense_id,omitempty"`
}

type UpdatePaymentRequest struct {
	Status string `json:"status"`
}

type PaymentDTO struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	PayerID   string  `json:"payer_id"`
	PayeeID   string  `json:"payee_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	ExpenseID string  `json:"expense_id,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// =============================================================================
// BALANCES AND SETTLEMENTS
// =============================================================================

type BalanceDTO struct {
	GroupID          string  `json:"group_id"`
	UserID           string  `json:"user_id"`
	TotalContributed float64 `json:"total_contributed"`
	TotalOwed        float64 `json:"total_owed"`
	NetBalance       float64 `json:"net_balance"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

type GroupBalancesDTO struct {
	GroupID     string       `json:"group_id"`
	TotalAmount float64      `json:"total_amount"`
	Balances    []BalanceDTO `json:"balances"`
}

type TransferDTO struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// =============================================================================
// INVITATIONS
// =============================================================================

type CreateInvitationRequest struct {
	GroupID string `json:"group_id"`
	Email   string `json:"email"`
}

type InvitationDTO struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	Email     string `json:"email"`
	InvitedBy string `json:"invited_by"`
	Token     string `json:"token"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u *ledger.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toGroupDTO(g *ledger.Group) GroupDTO {
	members := make([]MemberDTO, len(g.Members))
	for i, m := range g.Members {
		members[i] = MemberDTO{
			UserID:   string(m.UserID),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		}
	}
	return GroupDTO{
		ID:          string(g.ID),
		Name:        g.Name,
		Members:     members,
		TotalAmount: g.TotalAmount.Float64(),
		CreatedBy:   string(g.CreatedBy),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

func toExpenseDTO(e *ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:                 string(e.ID),
		UserID:             string(e.UserID),
		GroupID:            string(e.GroupID),
		Amount:             e.Amount.Float64(),
		Category:           string(e.Category),
		Description:        e.Description,
		TransactionDate:    e.TransactionDate.Format("2006-01-02"),
		IsRecurring:        e.IsRecurring,
		RecurringFrequency: string(e.RecurringFrequency),
		CreatedAt:          e.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p *ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:        string(p.ID),
		GroupID:   string(p.GroupID),
		PayerID:   string(p.PayerID),
		PayeeID:   string(p.PayeeID),
		Amount:    p.Amount.Float64(),
		Status:    string(p.Status),
		ExpenseID: string(p.ExpenseID),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(b *ledger.Balance) BalanceDTO {
	return BalanceDTO{
		GroupID:          string(b.GroupID),
		UserID:           string(b.UserID),
		TotalContributed: b.TotalContributed.Float64(),
		TotalOwed:        b.TotalOwed.Float64(),
		NetBalance:       b.NetBalance.Float64(),
		UpdatedAt:        b.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransferDTO(t ledger.Transfer) TransferDTO {
	return TransferDTO{
		From:   string(t.From),
		To:     string(t.To),
		Amount: t.Amount.Float64(),
	}
}

func toInvitationDTO(inv *ledger.Invitation) InvitationDTO {
	return InvitationDTO{
		ID:        inv.ID,
		GroupID:   string(inv.GroupID),
		Email:     inv.Email,
		InvitedBy: string(inv.InvitedBy),
		Token:     inv.Token,
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}
