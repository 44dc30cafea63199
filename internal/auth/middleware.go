package auth

import (
	"context"
	"net/http"

	"github.com/shiftline/shiftline/internal/models"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing session claims in context
	ClaimsContextKey contextKey = "session_claims"
)

// SessionMiddleware extracts the session cookie, verifies the token,
// and injects the claims into the request context. Any failure ends
// the request with 401 before downstream handlers run.
func SessionMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := GetSessionCookie(r)
			if err != nil || token == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			claims, err := tm.Verify(token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on strict role-set membership: the
// requester's role must be one of the listed roles. Membership is
// intentionally strict - a gate for {ADMIN, EMPLOYEE} does not admit
// MANAGER even though MANAGER outranks EMPLOYEE. Rank ordering
// (Role.Rank) exists for display and sorting, not for gate decisions.
func RequireRole(roles ...models.Role) func(next http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !allowed[claims.Role] {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext extracts session claims from a request context.
// Returns nil when the request did not pass SessionMiddleware.
func GetClaimsFromContext(ctx context.Context) *models.SessionClaims {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
