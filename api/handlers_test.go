package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvy/expense-engine/auth"
	"github.com/divvy/expense-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	h := NewHandler(store, tokens)
	return &testServer{t: t, router: NewRouter(h, tokens)}
}

// do runs a request and decodes the response envelope. An empty token skips
// the Authorization header.
func (ts *testServer) do(method, path, token string, body any) (int, Envelope) {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(ts.t, json.NewDecoder(rec.Body).Decode(&env))
	return rec.Code, env
}

// decodeData re-marshals the envelope payload into a typed value.
func decodeData[T any](t *testing.T, env Envelope) T {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// register creates an account and returns its user ID and session token.
func (ts *testServer) register(name string) (userID, token string) {
	ts.t.Helper()
	code, env := ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(ts.t, http.StatusCreated, code)
	resp := decodeData[AuthResponseDTO](ts.t, env)
	return resp.User.ID, resp.Token
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPI_RegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	_, token := ts.register("alice")
	assert.NotEmpty(t, token)

	code, env := ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "alice@example.com", Password: "correct-horse-battery",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = ts.do(http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
}

func TestAPI_Register_WeakPassword(t *testing.T) {
	ts := newTestServer(t)
	code, env := ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "alice", Email: "alice@example.com", Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestAPI_Register_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice")

	code, _ := ts.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "imposter", Email: "alice@example.com", Password: "battery-staple",
	})
	assert.Equal(t, http.StatusConflict, code)
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(http.MethodGet, "/api/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(http.MethodGet, "/api/groups", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestAPI_ExpenseToSettlementLifecycle(t *testing.T) {
	// GIVEN: Alice and Bob in a group, Alice pays 100
	// WHEN: Walking the full flow through the HTTP surface
	// THEN: Balances, settlement suggestions and the payment all line up

	ts := newTestServer(t)
	aliceID, aliceToken := ts.register("alice")
	bobID, bobToken := ts.register("bob")

	// Alice creates the group with Bob.
	code, env := ts.do(http.MethodPost, "/api/groups", aliceToken, CreateGroupRequest{
		Name: "Trip", Members: []string{bobID},
	})
	require.Equal(t, http.StatusCreated, code)
	group := decodeData[GroupDTO](t, env)
	require.Len(t, group.Members, 2)

	// Alice records a 100 expense.
	code, env = ts.do(http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, CreateExpenseRequest{
		Amount: 100, Category: "food", Description: "dinner",
	})
	require.Equal(t, http.StatusCreated, code)

	// The derived group total follows.
	code, env = ts.do(http.MethodGet, "/api/groups/"+group.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 100.0, decodeData[GroupDTO](t, env).TotalAmount)

	// Balances: alice +50, bob -50.
	code, env = ts.do(http.MethodGet, "/api/balances/"+group.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	balances := decodeData[GroupBalancesDTO](t, env)
	assert.Equal(t, 100.0, balances.TotalAmount)
	nets := map[string]float64{}
	for _, b := range balances.Balances {
		nets[b.UserID] = b.NetBalance
	}
	assert.Equal(t, 50.0, nets[aliceID])
	assert.Equal(t, -50.0, nets[bobID])

	// Suggested settlement: bob -> alice 50.
	code, env = ts.do(http.MethodGet, "/api/balances/"+group.ID+"/settlements", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	transfers := decodeData[[]TransferDTO](t, env)
	require.Len(t, transfers, 1)
	assert.Equal(t, bobID, transfers[0].From)
	assert.Equal(t, aliceID, transfers[0].To)
	assert.Equal(t, 50.0, transfers[0].Amount)

	// Bob records the payment and completes it.
	code, env = ts.do(http.MethodPost, "/api/payments", bobToken, CreatePaymentRequest{
		GroupID: group.ID, PayerID: bobID, PayeeID: aliceID, Amount: 50,
	})
	require.Equal(t, http.StatusCreated, code)
	payment := decodeData[PaymentDTO](t, env)
	assert.Equal(t, "pending", payment.Status)

	code, env = ts.do(http.MethodPatch, "/api/payments/"+payment.ID, bobToken, UpdatePaymentRequest{
		Status: "completed",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", decodeData[PaymentDTO](t, env).Status)

	// Everyone is settled; no further transfers suggested.
	code, env = ts.do(http.MethodGet, "/api/balances/"+group.ID+"/"+bobID, bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, decodeData[BalanceDTO](t, env).NetBalance)

	code, env = ts.do(http.MethodGet, "/api/balances/"+group.ID+"/settlements", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]TransferDTO](t, env))

	// The payment listing filters by status.
	code, env = ts.do(http.MethodGet, "/api/groups/"+group.ID+"/payments?status=completed", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]PaymentDTO](t, env), 1)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_ErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := ts.register("alice")
	bobID, bobToken := ts.register("bob")

	code, env := ts.do(http.MethodPost, "/api/groups", aliceToken, CreateGroupRequest{
		Name: "Trip", Members: []string{bobID},
	})
	require.Equal(t, http.StatusCreated, code)
	group := decodeData[GroupDTO](t, env)

	code, env = ts.do(http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, CreateExpenseRequest{
		Amount: 100, Category: "food",
	})
	require.Equal(t, http.StatusCreated, code)
	expense := decodeData[ExpenseDTO](t, env)

	t.Run("unknown group is 404", func(t *testing.T) {
		code, _ := ts.do(http.MethodGet, "/api/balances/nope", aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("zero payment is 400", func(t *testing.T) {
		code, _ := ts.do(http.MethodPost, "/api/payments", bobToken, CreatePaymentRequest{
			GroupID: group.ID, PayerID: bobID, PayeeID: aliceID, Amount: 0,
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("bad category is 400", func(t *testing.T) {
		code, _ := ts.do(http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, CreateExpenseRequest{
			Amount: 10, Category: "gambling",
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("removing an indebted member is 409", func(t *testing.T) {
		code, _ := ts.do(http.MethodDelete,
			fmt.Sprintf("/api/groups/%s/members/%s", group.ID, bobID), aliceToken, nil)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("deleting a non-empty group is 409", func(t *testing.T) {
		code, _ := ts.do(http.MethodDelete, "/api/groups/"+group.ID, aliceToken, nil)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("non-creator delete is 403", func(t *testing.T) {
		code, _ := ts.do(http.MethodDelete, "/api/groups/"+group.ID, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("plain member cannot add members", func(t *testing.T) {
		code, _ := ts.do(http.MethodPost, "/api/groups/"+group.ID+"/members", bobToken, AddMemberRequest{
			UserID: "someone",
		})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("editing someone else's expense is 403", func(t *testing.T) {
		desc := "mine now"
		code, _ := ts.do(http.MethodPut, "/api/expenses/"+expense.ID, bobToken, UpdateExpenseRequest{
			Description: &desc,
		})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("terminal payment transition is 409", func(t *testing.T) {
		code, env := ts.do(http.MethodPost, "/api/payments", bobToken, CreatePaymentRequest{
			GroupID: group.ID, PayerID: bobID, PayeeID: aliceID, Amount: 5, Status: "completed",
		})
		require.Equal(t, http.StatusCreated, code)
		payment := decodeData[PaymentDTO](t, env)

		code, _ = ts.do(http.MethodPatch, "/api/payments/"+payment.ID, bobToken, UpdatePaymentRequest{
			Status: "pending",
		})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("outsider cannot read balances", func(t *testing.T) {
		_, mallorToken := ts.register("mallory")
		code, _ := ts.do(http.MethodGet, "/api/balances/"+group.ID, mallorToken, nil)
		assert.Equal(t, http.StatusForbidden, code)
	})
}

// =============================================================================
// EXPENSE EDITS OVER HTTP
// =============================================================================

func TestAPI_ExpenseEditMovesBalances(t *testing.T) {
	// GIVEN: A 100 expense split between two members
	// WHEN: The contributor raises it to 150
	// THEN: The derived total and both nets follow

	ts := newTestServer(t)
	aliceID, aliceToken := ts.register("alice")
	bobID, _ := ts.register("bob")

	code, env := ts.do(http.MethodPost, "/api/groups", aliceToken, CreateGroupRequest{
		Name: "Flat", Members: []string{bobID},
	})
	require.Equal(t, http.StatusCreated, code)
	group := decodeData[GroupDTO](t, env)

	code, env = ts.do(http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, CreateExpenseRequest{
		Amount: 100, Category: "rent",
	})
	require.Equal(t, http.StatusCreated, code)
	expense := decodeData[ExpenseDTO](t, env)

	amount := 150.0
	code, _ = ts.do(http.MethodPut, "/api/expenses/"+expense.ID, aliceToken, UpdateExpenseRequest{
		Amount: &amount,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = ts.do(http.MethodGet, "/api/balances/"+group.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	balances := decodeData[GroupBalancesDTO](t, env)
	assert.Equal(t, 150.0, balances.TotalAmount)
	for _, b := range balances.Balances {
		if b.UserID == aliceID {
			assert.Equal(t, 75.0, b.NetBalance)
		} else {
			assert.Equal(t, -75.0, b.NetBalance)
		}
	}
}

// =============================================================================
// INVITATIONS
// =============================================================================

func TestAPI_InvitationFlow(t *testing.T) {
	// GIVEN: Alice's group and an invitation for Carol's email
	// WHEN: Carol accepts the token
	// THEN: She joins as a member and the invitation closes

	ts := newTestServer(t)
	_, aliceToken := ts.register("alice")

	code, env := ts.do(http.MethodPost, "/api/groups", aliceToken, CreateGroupRequest{Name: "Club"})
	require.Equal(t, http.StatusCreated, code)
	group := decodeData[GroupDTO](t, env)

	code, env = ts.do(http.MethodPost, "/api/invitations", aliceToken, CreateInvitationRequest{
		GroupID: group.ID, Email: "carol@example.com",
	})
	require.Equal(t, http.StatusCreated, code)
	inv := decodeData[InvitationDTO](t, env)
	require.NotEmpty(t, inv.Token)
	assert.Equal(t, "pending", inv.Status)

	carolID, carolToken := ts.register("carol")

	code, _ = ts.do(http.MethodPost, "/api/invitations/"+inv.Token+"/accept", carolToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = ts.do(http.MethodGet, "/api/groups/"+group.ID, carolToken, nil)
	require.Equal(t, http.StatusOK, code)
	joined := decodeData[GroupDTO](t, env)
	found := false
	for _, m := range joined.Members {
		if m.UserID == carolID {
			found = true
		}
	}
	assert.True(t, found, "carol should be a member after accepting")

	// A closed invitation cannot be accepted again.
	code, _ = ts.do(http.MethodPost, "/api/invitations/"+inv.Token+"/accept", carolToken, nil)
	assert.Equal(t, http.StatusConflict, code)
}

// =============================================================================
// PRIVATE EXPENSES
// =============================================================================

func TestAPI_PrivateExpenses(t *testing.T) {
	ts := newTestServer(t)
	_, aliceToken := ts.register("alice")

	code, env := ts.do(http.MethodPost, "/api/expenses", aliceToken, CreateExpenseRequest{
		Amount: 12.50, Category: "food", Description: "solo lunch",
	})
	require.Equal(t, http.StatusCreated, code)
	expense := decodeData[ExpenseDTO](t, env)
	assert.Empty(t, expense.GroupID)

	code, env = ts.do(http.MethodGet, "/api/expenses", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]ExpenseDTO](t, env), 1)

	code, _ = ts.do(http.MethodDelete, "/api/expenses/"+expense.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)
}
