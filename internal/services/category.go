package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// CategoryService handles category CRUD.
type CategoryService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCategoryService creates a new category service
func NewCategoryService(database *db.DB, m *metrics.AppMetrics) *CategoryService {
	return &CategoryService{db: database, metrics: m}
}

// ListCategories returns all categories ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM categories ORDER BY name")
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, apperr.Internal("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory returns a category by ID.
func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	start := time.Now()
	var c models.Category
	err := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal("failed to get category", err)
	}
	return &c, nil
}

// CreateCategory inserts a category with a unique name.
func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}

	now := time.Now()
	start := now
	result, err := s.db.ExecContext(ctx, "INSERT INTO categories (name, created_at) VALUES (?, ?)", name, now)
	s.metrics.RecordDBQuery(ctx, "INSERT", "categories", start, err == nil)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("category %q already exists", name)
		}
		return nil, apperr.Internal("failed to create category", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get category ID", err)
	}
	return &models.Category{ID: id, Name: name, CreatedAt: now}, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}

	start := time.Now()
	result, err := s.db.ExecContext(ctx, "UPDATE categories SET name = ? WHERE id = ?", name, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "categories", start, err == nil)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("category %q already exists", name)
		}
		return nil, apperr.Internal("failed to update category", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("category %d not found", id)
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "categories", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to delete category", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("category %d not found", id)
	}
	return nil
}

// isDuplicateKey matches the duplicate-entry errors of the supported
// drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
