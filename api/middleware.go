/*
middleware.go - Request authentication

PURPOSE:
  Validates the Bearer token on every authenticated route and attaches
  the user identity to the request context. Handlers read it back with
  UserFromContext; an empty ID never reaches a handler because the
  middleware rejects first.

SEE ALSO:
  - auth/jwt.go: Token validation
  - server.go: Middleware wiring
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/divvy/expense-engine/auth"
	"github.com/divvy/expense-engine/ledger"
)

// contextKey is a private type so context keys cannot collide.
type contextKey string

const userIDKey contextKey = "user_id"

// UserFromContext extracts the authenticated user ID from the context.
// Returns "" if the request was not authenticated.
func UserFromContext(ctx context.Context) ledger.UserID {
	id, _ := ctx.Value(userIDKey).(ledger.UserID)
	return id
}

// withUser returns a context carrying the authenticated user ID.
func withUser(ctx context.Context, id ledger.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequireAuth validates the Authorization header and enriches the context.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			ctx := withUser(r.Context(), ledger.UserID(claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
