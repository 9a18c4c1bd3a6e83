/*
handlers.go - HTTP API handlers for the expense-sharing engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the engine (ledger package) for all
  business rules.

ENDPOINTS:
  Auth:
    POST   /api/auth/register                  Create account, return token
    POST   /api/auth/login                     Verify password, return token

  Groups:
    GET    /api/groups                         Groups for the current user
    POST   /api/groups                         Create group
    GET    /api/groups/{groupID}               Group detail + derived total
    DELETE /api/groups/{groupID}               Creator only, empty only
    POST   /api/groups/{groupID}/members       Add member (admin)
    DELETE /api/groups/{groupID}/members/{userID}  Remove member (admin, settled)
    POST   /api/groups/{groupID}/expenses      Add group expense
    GET    /api/groups/{groupID}/payments      Payments for group

  Expenses:
    GET    /api/expenses                       Current user's expenses
    POST   /api/expenses                       Private expense
    PUT    /api/expenses/{expenseID}           Edit expense
    DELETE /api/expenses/{expenseID}           Delete expense (guarded)

  Balances:
    GET    /api/balances/{groupID}             Full-group recompute
    GET    /api/balances/{groupID}/{userID}    Single member, same formula
    GET    /api/balances/{groupID}/settlements Suggested transfers

  Payments:
    POST   /api/payments                       Create payment
    PATCH  /api/payments/{paymentID}           Status transition

  Invitations:
    POST   /api/invitations                    Invite email (admin)
    POST   /api/invitations/{token}/accept     Accept, join group

ERROR HANDLING:
  Engine errors are mapped to HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing/invalid token
  - 403: Authorization failures
  - 404: Entity not found
  - 409: Conflict (deletion guards, duplicate member, terminal status)
  - 500: Internal errors

  Responses use the {success, data} / {success:false, error} envelope.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/: The engine this fronts
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/divvy/expense-engine/auth"
	"github.com/divvy/expense-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Groups   *ledger.GroupService
	Payments *ledger.PaymentManager
	Calc     *ledger.Calculator
	Authn    *auth.Authenticator
	Tokens   *auth.TokenManager
}

// NewHandler creates a handler wired over the given store and token manager.
func NewHandler(store ledger.Store, tokens *auth.TokenManager) *Handler {
	return &Handler{
		Store:    store,
		Groups:   ledger.NewGroupService(store),
		Payments: ledger.NewPaymentManager(store),
		Calc:     ledger.NewCalculator(store),
		Authn:    auth.NewAuthenticator(store),
		Tokens:   tokens,
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: message})
}

// writeEngineError maps ledger errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case ledger.IsNotFound(err), errors.Is(err, ledger.ErrNotMember):
		writeError(w, http.StatusNotFound, err.Error())
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates a new account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	user, err := h.Authn.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeEngineError(w, err)
		}
		return
	}

	token, err := h.Tokens.Generate(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponseDTO{Token: token, User: toUserDTO(user)})
}

// Login verifies credentials and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	token, err := h.Tokens.Generate(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponseDTO{Token: token, User: toUserDTO(user)})
}

// =============================================================================
// GROUP HANDLERS
// =============================================================================

// ListGroups returns the groups the current user belongs to.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	groups, err := h.Store.ListGroupsByUser(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]GroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGroup creates a group with the caller as creator and admin.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	group := &ledger.Group{
		Name:      req.Name,
		CreatedBy: userID,
	}
	for _, m := range req.Members {
		group.Members = append(group.Members, ledger.Member{
			UserID: ledger.UserID(m),
			Role:   ledger.RoleMember,
		})
	}

	if err := h.Groups.CreateGroup(r.Context(), group); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(group))
}

// GetGroup returns a single group the caller belongs to.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	group, err := h.Store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !group.IsMember(userID) {
		writeError(w, http.StatusForbidden, "you must be a group member")
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(group))
}

// DeleteGroup removes an empty group. Creator only.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	if err := h.Groups.DeleteGroup(r.Context(), groupID, userID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(groupID)})
}

// AddMember adds a user to the group. Admin only.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.Groups.AddMember(r.Context(), groupID, userID, ledger.UserID(req.UserID)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"group_id": string(groupID), "user_id": req.UserID})
}

// RemoveMember removes a settled member from the group. Admin only.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))
	member := ledger.UserID(chi.URLParam(r, "userID"))

	if err := h.Groups.RemoveMember(r.Context(), groupID, userID, member); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group_id": string(groupID), "removed": string(member)})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

func (h *Handler) decodeExpense(r *http.Request, groupID ledger.GroupID) (*ledger.Expense, error) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &ledger.ValidationError{Field: "body", Message: "invalid request body"}
	}
	if groupID == "" {
		groupID = ledger.GroupID(req.GroupID)
	}

	e := &ledger.Expense{
		UserID:             UserFromContext(r.Context()),
		GroupID:            groupID,
		Amount:             ledger.NewMoney(req.Amount),
		Category:           ledger.Category(req.Category),
		Description:        req.Description,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: ledger.RecurringFrequency(req.RecurringFrequency),
	}
	if req.TransactionDate != "" {
		d, err := time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "transaction_date", Message: "use YYYY-MM-DD"}
		}
		e.TransactionDate = d
	}
	return e, nil
}

// CreateGroupExpense records an expense against a group.
func (h *Handler) CreateGroupExpense(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	e, err := h.decodeExpense(r, groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.Groups.AddExpense(r.Context(), e); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// CreateExpense records an expense; group_id in the body is optional
// (empty means private).
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.decodeExpense(r, "")
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.Groups.AddExpense(r.Context(), e); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// ListExpenses returns the current user's expenses.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	expenses, err := h.Store.ListExpensesByUser(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateExpense edits an expense. Contributor or group admin only.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	expenseID := ledger.ExpenseID(chi.URLParam(r, "expenseID"))

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var badDate bool
	e, err := h.Groups.EditExpense(r.Context(), expenseID, userID, func(e *ledger.Expense) {
		if req.Amount != nil {
			e.Amount = ledger.NewMoney(*req.Amount)
		}
		if req.Category != nil {
			e.Category = ledger.Category(*req.Category)
		}
		if req.Description != nil {
			e.Description = *req.Description
		}
		if req.TransactionDate != nil {
			d, err := time.Parse("2006-01-02", *req.TransactionDate)
			if err != nil {
				badDate = true
				return
			}
			e.TransactionDate = d
		}
		if req.IsRecurring != nil {
			e.IsRecurring = *req.IsRecurring
		}
		if req.RecurringFrequency != nil {
			e.RecurringFrequency = ledger.RecurringFrequency(*req.RecurringFrequency)
		}
	})
	if badDate {
		writeError(w, http.StatusBadRequest, "transaction_date: use YYYY-MM-DD")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// DeleteExpense removes an expense if no incomplete payment references it.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	expenseID := ledger.ExpenseID(chi.URLParam(r, "expenseID"))

	if err := h.Groups.DeleteExpense(r.Context(), expenseID, userID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(expenseID)})
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// requireMembership loads the group and checks the caller belongs to it.
func (h *Handler) requireMembership(w http.ResponseWriter, r *http.Request, groupID ledger.GroupID) (*ledger.Group, bool) {
	group, err := h.Store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return nil, false
	}
	if !group.IsMember(UserFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "you must be a group member")
		return nil, false
	}
	return group, true
}

// GetGroupBalances recomputes and returns every member's balance.
func (h *Handler) GetGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	group, ok := h.requireMembership(w, r, groupID)
	if !ok {
		return
	}

	balances, err := h.Calc.RecomputeGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, GroupBalancesDTO{
		GroupID:     string(groupID),
		TotalAmount: group.TotalAmount.Float64(),
		Balances:    dtos,
	})
}

// GetMemberBalance recomputes and returns one member's balance.
func (h *Handler) GetMemberBalance(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))
	member := ledger.UserID(chi.URLParam(r, "userID"))

	if _, ok := h.requireMembership(w, r, groupID); !ok {
		return
	}

	balance, err := h.Calc.RecomputeMember(r.Context(), groupID, member)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetSettlements returns suggested transfers that settle the group.
func (h *Handler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	if _, ok := h.requireMembership(w, r, groupID); !ok {
		return
	}

	balances, err := h.Calc.RecomputeGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	transfers := ledger.SuggestSettlements(balances)
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a settlement payment.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.PayerID == "" || req.PayeeID == "" {
		writeError(w, http.StatusBadRequest, "group_id, payer_id and payee_id are required")
		return
	}

	if group, err := h.Store.GetGroup(r.Context(), ledger.GroupID(req.GroupID)); err != nil {
		writeEngineError(w, err)
		return
	} else if !group.IsMember(userID) {
		writeError(w, http.StatusForbidden, "you must be a group member")
		return
	}

	p := &ledger.Payment{
		GroupID:   ledger.GroupID(req.GroupID),
		PayerID:   ledger.UserID(req.PayerID),
		PayeeID:   ledger.UserID(req.PayeeID),
		Amount:    ledger.NewMoney(req.Amount),
		Status:    ledger.PaymentStatus(req.Status),
		ExpenseID: ledger.ExpenseID(req.ExpenseID),
	}
	if err := h.Payments.CreatePayment(r.Context(), p); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// UpdatePayment transitions a payment's status.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	paymentID := ledger.PaymentID(chi.URLParam(r, "paymentID"))

	var req UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.Store.GetPayment(r.Context(), paymentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if group, err := h.Store.GetGroup(r.Context(), payment.GroupID); err != nil {
		writeEngineError(w, err)
		return
	} else if !group.IsMember(userID) {
		writeError(w, http.StatusForbidden, "you must be a group member")
		return
	}

	updated, err := h.Payments.UpdateStatus(r.Context(), paymentID, ledger.PaymentStatus(req.Status))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(updated))
}

// ListGroupPayments returns payments for a group, optionally filtered by
// ?status=pending|completed|failed.
func (h *Handler) ListGroupPayments(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "groupID"))

	if _, ok := h.requireMembership(w, r, groupID); !ok {
		return
	}

	status := ledger.PaymentStatus(r.URL.Query().Get("status"))
	if status != "" && !ledger.ValidPaymentStatus(status) {
		writeError(w, http.StatusBadRequest, ledger.ErrInvalidStatus.Error())
		return
	}

	payments, err := h.Store.ListPaymentsByGroup(r.Context(), groupID, status)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVITATION HANDLERS
// =============================================================================

// CreateInvitation invites an email address to a group. Admin only.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "group_id and email are required")
		return
	}

	group, err := h.Store.GetGroup(r.Context(), ledger.GroupID(req.GroupID))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !group.IsAdminOrCreator(userID) {
		writeError(w, http.StatusForbidden, ledger.ErrNotAuthorized.Error())
		return
	}

	inv := &ledger.Invitation{
		GroupID:   group.ID,
		Email:     req.Email,
		InvitedBy: userID,
	}
	if err := h.Store.CreateInvitation(r.Context(), inv); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationDTO(inv))
}

// AcceptInvitation joins the caller to the invited group.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	token := chi.URLParam(r, "token")

	inv, err := h.Store.GetInvitationByToken(r.Context(), token)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if inv.Status != ledger.InvitationPending {
		writeEngineError(w, ledger.ErrInvitationClosed)
		return
	}

	if err := h.Store.AddMember(r.Context(), inv.GroupID, ledger.Member{
		UserID: userID,
		Role:   ledger.RoleMember,
	}); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.Store.UpdateInvitationStatus(r.Context(), inv.ID, ledger.InvitationAccepted); err != nil {
		writeEngineError(w, err)
		return
	}
	// Shares shift for everyone with the new headcount.
	if _, err := h.Calc.RecomputeGroup(r.Context(), inv.GroupID); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group_id": string(inv.GroupID),
		"joined":   string(userID),
	})
}
