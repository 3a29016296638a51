package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// UserService handles registration, login and profile lookup.
type UserService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	tokens  *auth.Maker
	logger  zerolog.Logger
}

// NewUserService creates a new user service
func NewUserService(database *db.DB, m *metrics.AppMetrics, tokens *auth.Maker, logger zerolog.Logger) *UserService {
	return &UserService{db: database, metrics: m, tokens: tokens, logger: logger}
}

// Register creates a new account with the USER role. The password is
// stored as a bcrypt hash, never in plain text.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" {
		return nil, apperr.InvalidInput("name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperr.InvalidInput("invalid email address")
	}
	if len(req.Password) < 8 {
		return nil, apperr.InvalidInput("password must be at least 8 characters")
	}
	if req.Password != req.ConfirmPassword {
		return nil, apperr.Conflict("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	now := time.Now()
	start := now
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		req.Name, req.Email, string(hash), string(models.RoleUser), now, now)
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", start, err == nil)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("email %s is already registered", req.Email)
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get user ID", err)
	}

	s.logger.Info().Int64("user_id", id).Str("email", req.Email).Msg("user registered")
	return &models.User{
		ID:        id,
		Name:      req.Name,
		Email:     req.Email,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.getByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Conflict("incorrect password")
	}

	pair, err := s.tokens.CreateTokenPair(user)
	if err != nil {
		return nil, apperr.Internal("failed to issue tokens", err)
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user logged in")
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.GetProfile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.CreateTokenPair(user)
	if err != nil {
		return nil, apperr.Internal("failed to issue tokens", err)
	}
	return pair, nil
}

// GetProfile returns a user by ID.
func (s *UserService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()
	var u models.User
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal("failed to get user", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *UserService) getByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	var u models.User
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no account for %s", email)
	}
	if err != nil {
		return nil, apperr.Internal("failed to get user", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}
