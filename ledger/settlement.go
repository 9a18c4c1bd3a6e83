/*
settlement.go - Suggested transfers to settle a group

PURPOSE:
  Given the current net balances, produces a short list of transfers that
  would bring every member to zero. This is read-only advice for the UI;
  recording an actual payment goes through payment.go.

ALGORITHM:
  Greedy creditor/debtor matching. Debtors (negative net) and creditors
  (positive net) are walked in descending magnitude; each step transfers
  min(debt, credit) and advances whichever side is exhausted. Produces at
  most debtors+creditors-1 transfers.

ROUNDING:
  Transfers under one cent are dropped. With two-decimal snapshots an odd
  total split three ways can leave a residue smaller than a cent; chasing
  it would only generate noise transfers.
*/
package ledger

import "sort"

// Transfer is a suggested settlement payment from one member to another.
type Transfer struct {
	From   UserID
	To     UserID
	Amount Money
}

// minTransfer is the smallest transfer worth suggesting (one cent).
var minTransfer = NewMoney(0.01)

// SuggestSettlements computes a minimal transfer plan from balance snapshots.
// The input is not mutated. Output order is deterministic.
func SuggestSettlements(balances []*Balance) []Transfer {
	type side struct {
		user   UserID
		amount Money // always positive
	}

	var debtors, creditors []side
	for _, b := range balances {
		switch {
		case b.NetBalance.IsNegative():
			debtors = append(debtors, side{user: b.UserID, amount: b.NetBalance.Neg()})
		case b.NetBalance.IsPositive():
			creditors = append(creditors, side{user: b.UserID, amount: b.NetBalance})
		}
	}

	// Largest first, ties broken by user ID for determinism.
	byMagnitude := func(s []side) {
		sort.Slice(s, func(i, j int) bool {
			if !s[i].amount.Equal(s[j].amount) {
				return s[i].amount.GreaterThan(s[j].amount)
			}
			return s[i].user < s[j].user
		})
	}
	byMagnitude(debtors)
	byMagnitude(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount.LessThan(amount) {
			amount = creditors[j].amount
		}

		if !amount.LessThan(minTransfer) {
			transfers = append(transfers, Transfer{
				From:   debtors[i].user,
				To:     creditors[j].user,
				Amount: amount.Round(),
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.LessThan(minTransfer) {
			i++
		}
		if creditors[j].amount.LessThan(minTransfer) {
			j++
		}
	}

	return transfers
}
