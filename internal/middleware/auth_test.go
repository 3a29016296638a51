package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(models.RoleMerchant, models.RoleMerchant, models.RoleAdmin))
	assert.False(t, Allowed(models.RoleUser, models.RoleMerchant, models.RoleAdmin))
	assert.False(t, Allowed(models.Role("SUPERUSER"), models.RoleAdmin))
}

func TestRequireRole(t *testing.T) {
	maker := auth.NewMaker("secret", "refresh", time.Hour, time.Hour)

	var gotClaims *auth.Claims
	handler := RequireRole(maker, models.RoleMerchant, models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotClaims, _ = ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	merchantPair, err := maker.CreateTokenPair(&models.User{ID: 1, Name: "M", Email: "m@x.co", Role: models.RoleMerchant})
	require.NoError(t, err)
	userPair, err := maker.CreateTokenPair(&models.User{ID: 2, Name: "U", Email: "u@x.co", Role: models.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"role mismatch", "Bearer " + userPair.Token, http.StatusForbidden},
		{"allowed role", "Bearer " + merchantPair.Token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, gotClaims)
				assert.Equal(t, int64(1), gotClaims.UserID)
			}
		})
	}
}
