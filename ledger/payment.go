/*
payment.go - Payment lifecycle and status state machine

PURPOSE:
  Creates settlement payments and drives their status transitions. The
  state machine is small but strict:

    pending -> completed   (balances recomputed)
    pending -> failed      (terminal, no balance effect)
    completed, failed      (terminal)

  Creation may start a payment at pending (manual path) or completed
  (auto-complete path). Whenever a payment lands on completed, the group's
  balances are recomputed through the canonical calculator in balance.go;
  there is no ad hoc delta applied to snapshot rows.

VALIDATION:
  - amount strictly positive, rejected before any write
  - payer and payee must both be current group members
  - payer != payee
  - status must be one of the known values

SEE ALSO:
  - balance.go: Recompute triggered on completion
  - store.go: PaymentStore interface
*/
package ledger

import (
	"context"
	"log/slog"
)

// CanTransition reports whether a payment may move from one status to another.
// Completed and failed are terminal. Self-transitions are no-ops and allowed.
func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case PaymentPending:
		return to == PaymentCompleted || to == PaymentFailed
	default:
		return false
	}
}

// PaymentManager owns payment creation and status transitions.
type PaymentManager struct {
	Groups   GroupStore
	Payments PaymentStore
	Calc     *Calculator
}

// NewPaymentManager wires a manager over the given store.
func NewPaymentManager(store Store) *PaymentManager {
	return &PaymentManager{
		Groups:   store,
		Payments: store,
		Calc:     NewCalculator(store),
	}
}

// CreatePayment validates and persists a payment. If the initial status is
// completed (auto-complete path), the group's balances are recomputed.
// An empty status defaults to pending.
func (pm *PaymentManager) CreatePayment(ctx context.Context, p *Payment) error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if !ValidPaymentStatus(p.Status) {
		return ErrInvalidStatus
	}
	if p.PayerID == p.PayeeID {
		return &ValidationError{Field: "payee_id", Message: "payer and payee must differ"}
	}

	group, err := pm.Groups.GetGroup(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !group.IsMember(p.PayerID) || !group.IsMember(p.PayeeID) {
		return ErrNotMember
	}

	if err := pm.Payments.CreatePayment(ctx, p); err != nil {
		return err
	}

	slog.Info("payment created",
		"payment_id", p.ID,
		"group_id", p.GroupID,
		"payer", p.PayerID,
		"payee", p.PayeeID,
		"amount", p.Amount.String(),
		"status", p.Status,
	)

	if p.Status == PaymentCompleted {
		if _, err := pm.Calc.RecomputeGroup(ctx, p.GroupID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus transitions a payment to a new status. Only the transition
// into completed recomputes balances; every other legal transition leaves
// snapshots untouched. Illegal transitions return StatusTransitionError.
func (pm *PaymentManager) UpdateStatus(ctx context.Context, id PaymentID, to PaymentStatus) (*Payment, error) {
	if !ValidPaymentStatus(to) {
		return nil, ErrInvalidStatus
	}

	p, err := pm.Payments.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(p.Status, to) {
		return nil, &StatusTransitionError{PaymentID: id, From: p.Status, To: to}
	}
	if p.Status == to {
		return p, nil
	}

	completing := to == PaymentCompleted && p.Status != PaymentCompleted

	if err := pm.Payments.UpdatePaymentStatus(ctx, id, to); err != nil {
		return nil, err
	}
	p.Status = to

	slog.Info("payment status updated", "payment_id", id, "status", to)

	if completing {
		if _, err := pm.Calc.RecomputeGroup(ctx, p.GroupID); err != nil {
			return nil, err
		}
	}
	return p, nil
}
