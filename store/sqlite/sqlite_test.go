package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvy/expense-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustUser(t *testing.T, store *Store, id string) {
	t.Helper()
	require.NoError(t, store.CreateUser(context.Background(), &ledger.User{
		ID:           ledger.UserID(id),
		Name:         id,
		Email:        id + "@example.com",
		PasswordHash: "x",
	}))
}

func mustGroup(t *testing.T, store *Store, id string, members ...string) {
	t.Helper()
	g := &ledger.Group{
		ID:        ledger.GroupID(id),
		Name:      id,
		CreatedBy: ledger.UserID(members[0]),
	}
	for _, m := range members {
		g.Members = append(g.Members, ledger.Member{UserID: ledger.UserID(m), Role: ledger.RoleMember})
	}
	require.NoError(t, store.CreateGroup(context.Background(), g))
}

// =============================================================================
// USERS
// =============================================================================

func TestUsers_RoundTripAndUniqueEmail(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	u := &ledger.User{Name: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID, "ID is generated on insert")

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	err = store.CreateUser(ctx, &ledger.User{Name: "imposter", Email: "alice@example.com", PasswordHash: "y"})
	assert.Error(t, err, "duplicate email must be rejected")

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

// =============================================================================
// GROUPS
// =============================================================================

func TestGroups_DerivedTotal(t *testing.T) {
	// GIVEN: Two expenses of 10.10 and 20.15
	// WHEN: Loading the group
	// THEN: TotalAmount is derived as exactly 30.25

	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	for _, amount := range []float64{10.10, 20.15} {
		require.NoError(t, store.CreateExpense(ctx, &ledger.Expense{
			UserID: "alice", GroupID: "g1",
			Amount: ledger.NewMoney(amount), Category: ledger.CategoryOther,
		}))
	}

	g, err := store.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, g.TotalAmount.Equal(ledger.NewMoney(30.25)),
		"total must be derived from the expense table, got %s", g.TotalAmount)
}

func TestGroups_ListByUser(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice", "bob")
	mustGroup(t, store, "g2", "alice")

	groups, err := store.ListGroupsByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, ledger.GroupID("g1"), groups[0].ID)
}

func TestGroups_MembershipRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice")

	err := store.AddMember(ctx, "g1", ledger.Member{UserID: "bob", Role: ledger.RoleMember})
	require.NoError(t, err)

	err = store.AddMember(ctx, "g1", ledger.Member{UserID: "bob", Role: ledger.RoleMember})
	assert.ErrorIs(t, err, ledger.ErrAlreadyMember)

	require.NoError(t, store.RemoveMember(ctx, "g1", "bob"))
	err = store.RemoveMember(ctx, "g1", "bob")
	assert.ErrorIs(t, err, ledger.ErrNotMember)
}

func TestGroups_RemoveMemberDropsBalanceRow(t *testing.T) {
	// GIVEN: A stored balance snapshot for the member
	// WHEN: Removing the member
	// THEN: The snapshot row goes with them

	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice", "bob")

	require.NoError(t, store.UpsertBalance(ctx, &ledger.Balance{
		GroupID: "g1", UserID: "bob", NetBalance: ledger.ZeroMoney(),
	}))

	require.NoError(t, store.RemoveMember(ctx, "g1", "bob"))

	b, err := store.GetBalance(ctx, "g1", "bob")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestGroups_DeleteCascades(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")
	require.NoError(t, store.UpsertBalance(ctx, &ledger.Balance{
		GroupID: "g1", UserID: "alice", NetBalance: ledger.ZeroMoney(),
	}))

	require.NoError(t, store.DeleteGroup(ctx, "g1"))

	_, err := store.GetGroup(ctx, "g1")
	assert.ErrorIs(t, err, ledger.ErrGroupNotFound)
	b, err := store.GetBalance(ctx, "g1", "alice")
	require.NoError(t, err)
	assert.Nil(t, b)

	err = store.DeleteGroup(ctx, "g1")
	assert.ErrorIs(t, err, ledger.ErrGroupNotFound)
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestExpenses_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	e := &ledger.Expense{
		UserID:             "alice",
		GroupID:            "g1",
		Amount:             ledger.NewMoney(42.42),
		Category:           ledger.CategoryFood,
		Description:        "team lunch",
		IsRecurring:        true,
		RecurringFrequency: ledger.FreqMonthly,
	}
	require.NoError(t, store.CreateExpense(ctx, e))

	got, err := store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(ledger.NewMoney(42.42)))
	assert.Equal(t, ledger.CategoryFood, got.Category)
	assert.Equal(t, "team lunch", got.Description)
	assert.True(t, got.IsRecurring)
	assert.Equal(t, ledger.FreqMonthly, got.RecurringFrequency)

	got.Amount = ledger.NewMoney(50)
	require.NoError(t, store.UpdateExpense(ctx, got))
	sum, err := store.SumExpensesByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, sum.Equal(ledger.NewMoney(50)))

	require.NoError(t, store.DeleteExpense(ctx, e.ID))
	_, err = store.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, ledger.ErrExpenseNotFound)
}

func TestExpenses_PrivateHaveNoGroup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	private := &ledger.Expense{
		UserID: "alice", Amount: ledger.NewMoney(5), Category: ledger.CategoryOther,
	}
	require.NoError(t, store.CreateExpense(ctx, private))
	require.NoError(t, store.CreateExpense(ctx, &ledger.Expense{
		UserID: "alice", GroupID: "g1",
		Amount: ledger.NewMoney(10), Category: ledger.CategoryOther,
	}))

	grouped, err := store.ListExpensesByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, grouped, 1, "private expenses stay out of group listings")

	mine, err := store.ListExpensesByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2, "user listings include private expenses")

	got, err := store.GetExpense(ctx, private.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrivate())
}

func TestExpenses_SumEmptyGroupIsZero(t *testing.T) {
	store := newStore(t)
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	sum, err := store.SumExpensesByGroup(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_StatusFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice", "bob")

	for _, status := range []ledger.PaymentStatus{
		ledger.PaymentPending, ledger.PaymentCompleted, ledger.PaymentCompleted,
	} {
		require.NoError(t, store.CreatePayment(ctx, &ledger.Payment{
			GroupID: "g1", PayerID: "bob", PayeeID: "alice",
			Amount: ledger.NewMoney(10), Status: status,
		}))
	}

	all, err := store.ListPaymentsByGroup(ctx, "g1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	completed, err := store.ListPaymentsByGroup(ctx, "g1", ledger.PaymentCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 2)
}

func TestPayments_UpdateStatusAndExpenseLink(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice", "bob")

	e := &ledger.Expense{
		UserID: "alice", GroupID: "g1",
		Amount: ledger.NewMoney(100), Category: ledger.CategoryOther,
	}
	require.NoError(t, store.CreateExpense(ctx, e))

	p := &ledger.Payment{
		GroupID: "g1", PayerID: "bob", PayeeID: "alice",
		Amount: ledger.NewMoney(50), Status: ledger.PaymentPending,
		ExpenseID: e.ID,
	}
	require.NoError(t, store.CreatePayment(ctx, p))

	require.NoError(t, store.UpdatePaymentStatus(ctx, p.ID, ledger.PaymentCompleted))
	got, err := store.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentCompleted, got.Status)
	assert.Equal(t, e.ID, got.ExpenseID)

	linked, err := store.ListPaymentsByExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, p.ID, linked[0].ID)

	_, err = store.GetPayment(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrPaymentNotFound)
}

// =============================================================================
// BALANCE SNAPSHOTS
// =============================================================================

func TestBalances_UpsertOverwrites(t *testing.T) {
	// GIVEN: An existing snapshot for (g1, alice)
	// WHEN: Upserting again with new figures
	// THEN: One row remains, carrying the new figures

	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	write := func(net float64) {
		require.NoError(t, store.UpsertBalance(ctx, &ledger.Balance{
			GroupID:          "g1",
			UserID:           "alice",
			TotalContributed: ledger.NewMoney(net),
			TotalOwed:        ledger.ZeroMoney(),
			NetBalance:       ledger.NewMoney(net),
			UpdatedAt:        time.Now().UTC(),
		}))
	}
	write(10)
	write(25)

	rows, err := store.ListBalancesByGroup(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].NetBalance.Equal(ledger.NewMoney(25)))
}

func TestBalances_BatchUpsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustUser(t, store, "bob")
	mustGroup(t, store, "g1", "alice", "bob")

	err := store.UpsertBalances(ctx, []*ledger.Balance{
		{GroupID: "g1", UserID: "alice", NetBalance: ledger.NewMoney(50)},
		{GroupID: "g1", UserID: "bob", NetBalance: ledger.NewMoney(-50)},
	})
	require.NoError(t, err)

	rows, err := store.ListBalancesByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBalances_GetMissingIsNil(t *testing.T) {
	store := newStore(t)
	b, err := store.GetBalance(context.Background(), "g1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, b)
}

// =============================================================================
// INVITATIONS
// =============================================================================

func TestInvitations_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustUser(t, store, "alice")
	mustGroup(t, store, "g1", "alice")

	inv := &ledger.Invitation{
		GroupID:   "g1",
		Email:     "friend@example.com",
		InvitedBy: "alice",
	}
	require.NoError(t, store.CreateInvitation(ctx, inv))
	require.NotEmpty(t, inv.Token, "token is generated on insert")
	assert.Equal(t, ledger.InvitationPending, inv.Status)

	got, err := store.GetInvitationByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "friend@example.com", got.Email)

	require.NoError(t, store.UpdateInvitationStatus(ctx, inv.ID, ledger.InvitationAccepted))
	got, err = store.GetInvitationByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, ledger.InvitationAccepted, got.Status)

	_, err = store.GetInvitationByToken(ctx, "bogus")
	assert.ErrorIs(t, err, ledger.ErrInvitationNotFound)
}
