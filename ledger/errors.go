/*
errors.go - Centralized error types for the expense-sharing engine

PURPOSE:
  All engine errors in one place for consistency and discoverability.
  The API layer maps these to HTTP status codes; nothing in this package
  knows about HTTP.

ERROR CATEGORIES:
  1. Validation errors  - bad input, rejected before any write
  2. Not-found errors   - referenced entity does not exist
  3. Authorization errors - caller lacks the required role
  4. Conflict errors    - precondition on existing state fails

USAGE:
  if errors.Is(err, ledger.ErrGroupNotFound) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: Maps these errors to HTTP responses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrGroupNotFound is returned when a referenced group doesn't exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrExpenseNotFound is returned when a referenced expense doesn't exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvitationNotFound is returned when an invitation token is unknown.
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrNonPositiveAmount is returned when a payment amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")

	// ErrInvalidStatus is returned for an unknown payment status value.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrTerminalStatus is returned when transitioning out of completed/failed.
	ErrTerminalStatus = errors.New("payment status is terminal")

	// ErrEmptyGroup is returned when computing balances for a zero-member group.
	// Guards the equal-share division.
	ErrEmptyGroup = errors.New("group has no members")

	// ErrNotAuthorized is returned when the caller lacks admin/creator rights.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotMember is returned when a payer, payee or caller is outside the group.
	ErrNotMember = errors.New("user is not a group member")

	// ErrAlreadyMember is returned when adding a user who already belongs.
	ErrAlreadyMember = errors.New("user is already a group member")

	// ErrGroupHasExpenses blocks group deletion while expenses remain.
	ErrGroupHasExpenses = errors.New("group still has expenses")

	// ErrMemberHasObligations blocks removing a member with a non-zero balance.
	ErrMemberHasObligations = errors.New("member has unsettled balance")

	// ErrExpenseHasPendingPayments blocks deleting an expense referenced by
	// a payment that has not completed.
	ErrExpenseHasPendingPayments = errors.New("expense has incomplete payments")

	// ErrInvitationClosed is returned when accepting a non-pending invitation.
	ErrInvitationClosed = errors.New("invitation already resolved")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StatusTransitionError reports an illegal payment status transition.
type StatusTransitionError struct {
	PaymentID PaymentID
	From      PaymentStatus
	To        PaymentStatus
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("payment %s: cannot transition %s -> %s", e.PaymentID, e.From, e.To)
}

func (e *StatusTransitionError) Unwrap() error {
	return ErrTerminalStatus
}

// ObligationError reports why a member cannot be removed.
type ObligationError struct {
	GroupID GroupID
	UserID  UserID
	Net     Money
}

func (e *ObligationError) Error() string {
	return fmt.Sprintf("member %s in group %s has unsettled balance %s", e.UserID, e.GroupID, e.Net)
}

func (e *ObligationError) Unwrap() error {
	return ErrMemberHasObligations
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrInvitationNotFound)
}

// IsConflict reports whether err is a precondition failure on existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrGroupHasExpenses) ||
		errors.Is(err, ErrMemberHasObligations) ||
		errors.Is(err, ErrExpenseHasPendingPayments) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrTerminalStatus) ||
		errors.Is(err, ErrInvitationClosed)
}

// IsValidation reports whether err is due to invalid client input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrEmptyGroup) ||
		errors.As(err, &ve)
}
