/*
contribution.go - Per-member contribution aggregation

PURPOSE:
  Computes, for every member of a group, the raw inputs to the balance
  formula: expense contributions, settlement payments made, and settlement
  payments received. This is the fold over the ledger tables; the formula
  itself lives in balance.go.

ALGORITHM:
  1. Every current member starts with a zero entry, so members with no
     activity still appear (and will owe their equal share).
  2. Expense amounts are summed per contributor (expense.UserID).
  3. COMPLETED payments are summed per payer (made) and payee (received).
     Pending and failed payments never enter the aggregate.

KNOWN GAP:
  A payer or payee who has since left the group is silently ignored: there
  is no member entry to fold their amounts into. Their past activity still
  sits in the payment table and would reappear if they rejoined.

SEE ALSO:
  - balance.go: Applies the equal-share formula to these aggregates
*/
package ledger

import "context"

// Contribution holds the aggregated ledger activity for one group member.
type Contribution struct {
	UserID           UserID
	FromExpenses     Money // sum of expense amounts this member paid
	PaymentsMade     Money // completed settlement payments sent
	PaymentsReceived Money // completed settlement payments received
}

// Aggregator folds raw expense and payment records into per-member
// contributions for a group.
type Aggregator struct {
	Expenses ExpenseStore
	Payments PaymentStore
}

// Aggregate computes contributions for every member of the group.
// The group must already be loaded; members are deduplicated by user ID.
func (a *Aggregator) Aggregate(ctx context.Context, group *Group) (map[UserID]*Contribution, error) {
	members := group.MemberIDs()
	contribs := make(map[UserID]*Contribution, len(members))
	for _, id := range members {
		contribs[id] = &Contribution{
			UserID:           id,
			FromExpenses:     ZeroMoney(),
			PaymentsMade:     ZeroMoney(),
			PaymentsReceived: ZeroMoney(),
		}
	}

	expenses, err := a.Expenses.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if c, ok := contribs[e.UserID]; ok {
			c.FromExpenses = c.FromExpenses.Add(e.Amount)
		}
	}

	payments, err := a.Payments.ListPaymentsByGroup(ctx, group.ID, PaymentCompleted)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if c, ok := contribs[p.PayerID]; ok {
			c.PaymentsMade = c.PaymentsMade.Add(p.Amount)
		}
		if c, ok := contribs[p.PayeeID]; ok {
			c.PaymentsReceived = c.PaymentsReceived.Add(p.Amount)
		}
	}

	return contribs, nil
}
