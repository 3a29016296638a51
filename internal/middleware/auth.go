package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext returns the verified token claims for the request, if
// the request passed through RequireRole.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

// Allowed reports whether the claimed role is in the allowed set.
func Allowed(claimed models.Role, allowed ...models.Role) bool {
	for _, role := range allowed {
		if claimed == role {
			return true
		}
	}
	return false
}

// RequireRole verifies the bearer token and checks the claimed role against
// the allowed set. 401 without a valid token, 403 on role mismatch.
func RequireRole(maker *auth.Maker, roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			fields := strings.Fields(authHeader)
			if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := maker.VerifyAccess(fields[1])
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			if !claims.Role.Valid() || !Allowed(claims.Role, roles...) {
				forbidden(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"kind":"unauthorized","message":"` + message + `"}}`))
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":{"kind":"forbidden","message":"access denied"}}`))
}
