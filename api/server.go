/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Metrics:    Prometheus request counters and latency
  5. CORS:       Cross-origin requests for the SPA frontend
  6. RequireAuth: JWT validation on everything except /api/auth and /metrics

ROUTE GROUPS:
  /api/auth/*         Registration and login (public)
  /api/groups/*       Group, membership, group-expense operations
  /api/expenses/*     Expense CRUD
  /api/balances/*     Balance recompute and settlement suggestions
  /api/payments/*     Payment creation and status transitions
  /api/invitations/*  Group invitations
  /metrics            Prometheus scrape endpoint (public)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/divvy/expense-engine/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, tokens *auth.TokenManager) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything else requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(tokens))

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", h.ListGroups)
				r.Post("/", h.CreateGroup)
				r.Get("/{groupID}", h.GetGroup)
				r.Delete("/{groupID}", h.DeleteGroup)
				r.Post("/{groupID}/members", h.AddMember)
				r.Delete("/{groupID}/members/{userID}", h.RemoveMember)
				r.Post("/{groupID}/expenses", h.CreateGroupExpense)
				r.Get("/{groupID}/payments", h.ListGroupPayments)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Put("/{expenseID}", h.UpdateExpense)
				r.Delete("/{expenseID}", h.DeleteExpense)
			})

			r.Route("/balances", func(r chi.Router) {
				r.Get("/{groupID}", h.GetGroupBalances)
				r.Get("/{groupID}/settlements", h.GetSettlements)
				r.Get("/{groupID}/{userID}", h.GetMemberBalance)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.CreatePayment)
				r.Patch("/{paymentID}", h.UpdatePayment)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", h.CreateInvitation)
				r.Post("/{token}/accept", h.AcceptInvitation)
			})
		})
	})

	return r
}
