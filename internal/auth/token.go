// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// Claims is the payload carried by every access token.
type Claims struct {
	UserID int64       `json:"id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	Email  string      `json:"email"`
	jwt.RegisteredClaims
}

// Maker issues and verifies token pairs.
type Maker struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewMaker(secret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Maker {
	return &Maker{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// CreateTokenPair signs an access and a refresh token for the user. The
// refresh token carries id and role only.
func (m *Maker) CreateTokenPair(user *models.User) (*models.TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	})
	accessToken, err := access.SignedString(m.secret)
	if err != nil {
		return nil, apperr.Internal("failed to sign access token", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	})
	refreshToken, err := refresh.SignedString(m.refreshSecret)
	if err != nil {
		return nil, apperr.Internal("failed to sign refresh token", err)
	}

	return &models.TokenPair{Token: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess parses and validates an access token.
func (m *Maker) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, m.secret)
}

// VerifyRefresh parses and validates a refresh token.
func (m *Maker) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, m.refreshSecret)
}

func (m *Maker) verify(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, apperr.Unauthorized("invalid token claims")
	}
	return claims, nil
}
