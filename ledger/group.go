/*
group.go - Group, membership and expense mutation rules

PURPOSE:
  Enforces the preconditions around destructive group operations and keeps
  balances in sync with expense mutations. Handlers call into this service
  instead of writing to the store directly, so every rule lives here once.

RULES:
  Add expense:     persist, then recompute balances (total is derived)
  Edit expense:    persist new fields, then recompute
  Delete expense:  admin/creator only; blocked while any non-completed
                   payment references the expense
  Add member:      admin/creator only; duplicates rejected
  Remove member:   admin/creator only; blocked while the member's net
                   balance is non-zero
  Delete group:    creator only; blocked while any expense remains

ORDERING:
  Precondition checks run first; the destructive write happens last. There
  is no rollback of the recompute step - snapshots are derived data and a
  failed recompute only leaves a stale cache, not a corrupt ledger.

SEE ALSO:
  - balance.go: Recompute triggered after each mutation
  - errors.go: Conflict and authorization sentinels
*/
package ledger

import (
	"context"
	"log/slog"
)

// GroupService enforces mutation rules for groups, members and expenses.
type GroupService struct {
	Store Store
	Calc  *Calculator
}

// NewGroupService wires a service over the given store.
func NewGroupService(store Store) *GroupService {
	return &GroupService{Store: store, Calc: NewCalculator(store)}
}

// =============================================================================
// GROUP LIFECYCLE
// =============================================================================

// CreateGroup persists a new group. The creator is always added as an admin
// member, deduplicated against the provided member list.
func (s *GroupService) CreateGroup(ctx context.Context, g *Group) error {
	hasCreator := false
	for i := range g.Members {
		if g.Members[i].UserID == g.CreatedBy {
			g.Members[i].Role = RoleAdmin
			hasCreator = true
		}
	}
	if !hasCreator {
		g.Members = append(g.Members, Member{UserID: g.CreatedBy, Role: RoleAdmin})
	}
	return s.Store.CreateGroup(ctx, g)
}

// DeleteGroup removes a group. Only the creator may delete, and only while
// no expenses remain.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID GroupID, caller UserID) error {
	group, err := s.Store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatedBy != caller {
		return ErrNotAuthorized
	}

	expenses, err := s.Store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if len(expenses) > 0 {
		return ErrGroupHasExpenses
	}

	if err := s.Store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	slog.Info("group deleted", "group_id", groupID, "by", caller)
	return nil
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

// AddMember adds a user to the group. Requires admin/creator rights.
func (s *GroupService) AddMember(ctx context.Context, groupID GroupID, caller, newMember UserID) error {
	group, err := s.Store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdminOrCreator(caller) {
		return ErrNotAuthorized
	}
	if group.IsMember(newMember) {
		return ErrAlreadyMember
	}
	if _, err := s.Store.GetUser(ctx, newMember); err != nil {
		return err
	}

	if err := s.Store.AddMember(ctx, groupID, Member{UserID: newMember, Role: RoleMember}); err != nil {
		return err
	}

	// Equal shares shift for everyone when headcount changes.
	if _, err := s.Calc.RecomputeGroup(ctx, groupID); err != nil {
		return err
	}
	slog.Info("member added", "group_id", groupID, "user_id", newMember, "by", caller)
	return nil
}

// RemoveMember removes a user from the group. Requires admin/creator rights
// and a settled (zero) net balance for the member being removed.
func (s *GroupService) RemoveMember(ctx context.Context, groupID GroupID, caller, member UserID) error {
	group, err := s.Store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdminOrCreator(caller) {
		return ErrNotAuthorized
	}
	if !group.IsMember(member) {
		return ErrNotMember
	}

	bal, err := s.Calc.RecomputeMember(ctx, groupID, member)
	if err != nil {
		return err
	}
	if !bal.NetBalance.IsZero() {
		return &ObligationError{GroupID: groupID, UserID: member, Net: bal.NetBalance}
	}

	if err := s.Store.RemoveMember(ctx, groupID, member); err != nil {
		return err
	}
	if _, err := s.Calc.RecomputeGroup(ctx, groupID); err != nil {
		return err
	}
	slog.Info("member removed", "group_id", groupID, "user_id", member, "by", caller)
	return nil
}

// =============================================================================
// EXPENSE MUTATIONS
// =============================================================================

// AddExpense persists an expense. Group expenses require the contributor to
// be a member; private expenses (empty group ID) skip group checks entirely.
func (s *GroupService) AddExpense(ctx context.Context, e *Expense) error {
	if !e.Amount.IsPositive() && !e.IsPrivate() {
		return ErrNonPositiveAmount
	}
	if !ValidCategory(e.Category) {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}

	if !e.IsPrivate() {
		group, err := s.Store.GetGroup(ctx, e.GroupID)
		if err != nil {
			return err
		}
		if !group.IsMember(e.UserID) {
			return ErrNotMember
		}
	}

	if err := s.Store.CreateExpense(ctx, e); err != nil {
		return err
	}

	if !e.IsPrivate() {
		if _, err := s.Calc.RecomputeGroup(ctx, e.GroupID); err != nil {
			return err
		}
	}
	slog.Info("expense created", "expense_id", e.ID, "group_id", e.GroupID, "amount", e.Amount.String())
	return nil
}

// EditExpense updates an expense's mutable fields. Only the contributor or
// a group admin may edit. An amount change flows into the derived group
// total on the recompute that follows.
func (s *GroupService) EditExpense(ctx context.Context, id ExpenseID, caller UserID, update func(*Expense)) (*Expense, error) {
	e, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.UserID != caller {
		if e.IsPrivate() {
			return nil, ErrNotAuthorized
		}
		group, err := s.Store.GetGroup(ctx, e.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.IsAdminOrCreator(caller) {
			return nil, ErrNotAuthorized
		}
	}

	update(e)
	if !ValidCategory(e.Category) {
		return nil, &ValidationError{Field: "category", Message: "unknown category"}
	}

	if err := s.Store.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	if !e.IsPrivate() {
		if _, err := s.Calc.RecomputeGroup(ctx, e.GroupID); err != nil {
			return nil, err
		}
	}
	slog.Info("expense updated", "expense_id", id, "by", caller)
	return e, nil
}

// DeleteExpense removes an expense. For group expenses the caller must be
// the contributor or an admin, and no referencing payment may be in a
// non-completed state.
func (s *GroupService) DeleteExpense(ctx context.Context, id ExpenseID, caller UserID) error {
	e, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	if !e.IsPrivate() {
		group, err := s.Store.GetGroup(ctx, e.GroupID)
		if err != nil {
			return err
		}
		if e.UserID != caller && !group.IsAdminOrCreator(caller) {
			return ErrNotAuthorized
		}
	} else if e.UserID != caller {
		return ErrNotAuthorized
	}

	payments, err := s.Store.ListPaymentsByExpense(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Status != PaymentCompleted {
			return ErrExpenseHasPendingPayments
		}
	}

	if err := s.Store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	if !e.IsPrivate() {
		if _, err := s.Calc.RecomputeGroup(ctx, e.GroupID); err != nil {
			return err
		}
	}
	slog.Info("expense deleted", "expense_id", id, "by", caller)
	return nil
}
