/*
balance.go - Canonical balance calculation

PURPOSE:
  Derives each member's net financial position from contributions and the
  group's derived total. This is the single formula every mutation path
  goes through; there is no separately-maintained incremental path, so the
  stored snapshots cannot drift from the raw ledger.

FORMULA (per member):
  equalShare = totalAmount / memberCount
  net        = fromExpenses + paymentsMade - equalShare - paymentsReceived

SIGN CONVENTION:
  Positive net  => the group owes this member money
  Negative net  => this member owes the group

SETTLEMENT SEMANTICS:
  A completed payment from A to B raises A's net by the amount and lowers
  B's net by the same amount. A member who pays exactly what they owe lands
  on zero, and the sum of all nets in a group stays zero. Subtracting the
  payee's received amount is what keeps payments value-neutral: without it
  a settled debt would inflate the payee's position.

ENTRY POINTS:
  RecomputeGroup:  all members at once, snapshots persisted
  RecomputeMember: one member, same formula, snapshot persisted
  Both load the group, aggregate, and apply the identical computation; the
  single-member path is a filter over the whole-group result.

FAILURE:
  Group not found      -> ErrGroupNotFound (from the store)
  Zero members         -> ErrEmptyGroup (guards the division)

SEE ALSO:
  - contribution.go: Produces the aggregates consumed here
  - settlement.go: Suggests transfers that drive nets to zero
*/
package ledger

import (
	"context"
	"log/slog"
	"time"
)

// Calculator recomputes and persists balance snapshots for a group.
type Calculator struct {
	Groups   GroupStore
	Balances BalanceStore
	Agg      *Aggregator
}

// NewCalculator wires a calculator over the given store.
func NewCalculator(store Store) *Calculator {
	return &Calculator{
		Groups:   store,
		Balances: store,
		Agg:      &Aggregator{Expenses: store, Payments: store},
	}
}

// RecomputeGroup rebuilds every member's snapshot from the raw ledger and
// persists them atomically. Returns the snapshots in member order.
func (c *Calculator) RecomputeGroup(ctx context.Context, groupID GroupID) ([]*Balance, error) {
	group, err := c.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances, err := c.compute(ctx, group)
	if err != nil {
		return nil, err
	}

	if err := c.Balances.UpsertBalances(ctx, balances); err != nil {
		return nil, err
	}

	slog.Debug("group balances recomputed",
		"group_id", groupID,
		"members", len(balances),
		"total", group.TotalAmount.String(),
	)
	return balances, nil
}

// RecomputeMember rebuilds a single member's snapshot. The whole group is
// recomputed internally so the stored rows stay mutually consistent; only
// the requested member's snapshot is returned.
func (c *Calculator) RecomputeMember(ctx context.Context, groupID GroupID, userID UserID) (*Balance, error) {
	balances, err := c.RecomputeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		if b.UserID == userID {
			return b, nil
		}
	}
	return nil, ErrNotMember
}

// compute applies the canonical formula without persisting.
func (c *Calculator) compute(ctx context.Context, group *Group) ([]*Balance, error) {
	members := group.MemberIDs()
	if len(members) == 0 {
		return nil, ErrEmptyGroup
	}

	contribs, err := c.Agg.Aggregate(ctx, group)
	if err != nil {
		return nil, err
	}

	equalShare := group.TotalAmount.Div(int64(len(members))).Round()
	now := time.Now().UTC()

	balances := make([]*Balance, 0, len(members))
	for _, id := range members {
		con := contribs[id]
		effective := con.FromExpenses.Add(con.PaymentsMade)
		net := effective.Sub(equalShare).Sub(con.PaymentsReceived)

		balances = append(balances, &Balance{
			GroupID:          group.ID,
			UserID:           id,
			TotalContributed: effective.Round(),
			TotalOwed:        equalShare,
			NetBalance:       net.Round(),
			UpdatedAt:        now,
		})
	}
	return balances, nil
}
