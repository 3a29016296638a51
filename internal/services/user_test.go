package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/models"
)

func newUserFixture(t *testing.T) *UserService {
	t.Helper()
	database := newTestDB(t)
	maker := auth.NewMaker("test-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
	return NewUserService(database, testMetrics(t), maker, testLogger())
}

func TestRegister(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{
		Name: "Alice", Email: "Alice@Example.com",
		Password: "supersecret", ConfirmPassword: "supersecret",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)

	stored, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{
			Name: "Alice Again", Email: "alice@example.com",
			Password: "supersecret", ConfirmPassword: "supersecret",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("password mismatch", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{
			Name: "Bob", Email: "bob@example.com",
			Password: "supersecret", ConfirmPassword: "different1",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{
			Name: "Bob", Email: "bob@example.com",
			Password: "short", ConfirmPassword: "short",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{
			Name: "Bob", Email: "not-an-email",
			Password: "supersecret", ConfirmPassword: "supersecret",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})
}

func TestLogin(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{
		Name: "Alice", Email: "alice@example.com",
		Password: "supersecret", ConfirmPassword: "supersecret",
	})
	require.NoError(t, err)

	pair, err := svc.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "supersecret"})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "wrongwrong"})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("refresh", func(t *testing.T) {
		fresh, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, fresh.Token)

		_, err = svc.Refresh(ctx, "garbage")
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})
}
