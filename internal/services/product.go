package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProductService handles catalog operations. It also exposes the stock
// decrement primitive the order workflow runs inside its transaction.
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	logger  zerolog.Logger
}

// NewProductService creates a new product service
func NewProductService(database *db.DB, m *metrics.AppMetrics, logger zerolog.Logger) *ProductService {
	return &ProductService{db: database, metrics: m, logger: logger}
}

// ListProductsOptions filters and paginates the catalog listing.
type ListProductsOptions struct {
	Page     int
	Limit    int
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// ListProducts returns a page of products, newest first, with listing meta.
func (s *ProductService) ListProducts(ctx context.Context, opts ListProductsOptions) (*models.ProductList, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	where, args := buildProductFilters(opts)

	countQuery := "SELECT COUNT(*) FROM products p JOIN categories c ON p.category_id = c.id" + where
	start := time.Now()
	var total int
	err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to count products", err)
	}

	query := `SELECT p.id, p.merchant_id, p.category_id, p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM products p JOIN categories c ON p.category_id = c.id` + where +
		" ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	listArgs := append(append([]any{}, args...), opts.Limit, (opts.Page-1)*opts.Limit)

	start = time.Now()
	rows, err := s.db.QueryContext(ctx, query, listArgs...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query products", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperr.Internal("failed to scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read products", err)
	}

	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + opts.Limit - 1) / opts.Limit
	}
	return &models.ProductList{
		Data: products,
		Meta: models.ListMeta{Total: total, Page: opts.Page, Limit: opts.Limit, TotalPages: totalPages},
	}, nil
}

func buildProductFilters(opts ListProductsOptions) (string, []any) {
	var conds []string
	var args []any

	if opts.Category != "" {
		conds = append(conds, "c.name = ?")
		args = append(args, opts.Category)
	}
	if opts.Search != "" {
		conds = append(conds, "p.name LIKE ?")
		args = append(args, "%"+opts.Search+"%")
	}
	if opts.MinPrice != nil {
		conds = append(conds, "p.price >= ?")
		args = append(args, *opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		conds = append(conds, "p.price <= ?")
		args = append(args, *opts.MaxPrice)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetProduct returns a product with its images.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	start := time.Now()
	query := `SELECT id, merchant_id, category_id, name, description, price, stock, created_at, updated_at FROM products WHERE id = ?`
	var p models.Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.MerchantID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || errors.Is(err, sql.ErrNoRows))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("product %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal("failed to get product", err)
	}

	products := []models.Product{p}
	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}
	p = products[0]

	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", id),
	})...))

	return &p, nil
}

// CreateProduct inserts a product owned by the merchant.
func (s *ProductService) CreateProduct(ctx context.Context, merchantID int64, req models.CreateProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.InvalidInput("product name is required")
	}
	if req.Price < 0 {
		return nil, apperr.InvalidInput("price cannot be negative")
	}
	if req.Stock < 0 {
		return nil, apperr.InvalidInput("stock cannot be negative")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM categories WHERE id = ?)", req.CategoryID).Scan(&exists); err != nil {
		return nil, apperr.Internal("failed to verify category", err)
	}
	if !exists {
		return nil, apperr.NotFound("category %d not found", req.CategoryID)
	}

	now := time.Now()
	start := now
	query := `INSERT INTO products (merchant_id, category_id, name, description, price, stock, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, merchantID, req.CategoryID, req.Name, req.Description, req.Price, req.Stock, now, now)
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to create product", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get product ID", err)
	}

	return &models.Product{
		ID:          id,
		MerchantID:  merchantID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateProduct updates mutable product fields. The live price changes here
// never touch prices already captured on order lines.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req models.CreateProductRequest) (*models.Product, error) {
	if req.Price < 0 {
		return nil, apperr.InvalidInput("price cannot be negative")
	}
	if req.Stock < 0 {
		return nil, apperr.InvalidInput("stock cannot be negative")
	}

	start := time.Now()
	query := `UPDATE products SET category_id = ?, name = ?, description = ?, price = ?, stock = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, req.CategoryID, req.Name, req.Description, req.Price, req.Stock, time.Now(), id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to update product", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("product %d not found", id)
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product and its images.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM product_images WHERE product_id = ?", id); err != nil {
		s.metrics.RecordDBQuery(ctx, "DELETE", "product_images", start, false)
		return apperr.Internal("failed to delete product images", err)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "products", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to delete product", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("product %d not found", id)
	}
	return nil
}

// AddImage attaches a hosted image to a product.
func (s *ProductService) AddImage(ctx context.Context, productID int64, url, name string, isMain bool) (*models.ProductImage, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", productID).Scan(&exists); err != nil {
		return nil, apperr.Internal("failed to verify product", err)
	}
	if !exists {
		return nil, apperr.NotFound("product %d not found", productID)
	}

	now := time.Now()
	start := now
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO product_images (product_id, url, name, is_main, created_at) VALUES (?, ?, ?, ?, ?)",
		productID, url, name, isMain, now)
	s.metrics.RecordDBQuery(ctx, "INSERT", "product_images", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to add product image", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get image ID", err)
	}

	return &models.ProductImage{
		ID:        id,
		ProductID: productID,
		URL:       url,
		Name:      name,
		IsMain:    isMain,
		CreatedAt: now,
	}, nil
}

// DecrementStock atomically applies stock -= amount inside the caller's
// transaction. Zero affected rows means the guard rejected the decrement,
// which surfaces as InsufficientStock; this is what prevents overselling
// when two orders race past validation.
func (s *ProductService) DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, amount int) (int, error) {
	if amount <= 0 {
		return 0, apperr.InvalidInput("decrement amount must be positive")
	}

	start := time.Now()
	result, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?",
		amount, time.Now(), productID, amount)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return 0, apperr.Internal("failed to decrement stock", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, apperr.InsufficientStock("not enough stock for product %d", productID)
	}

	var stock int
	if err := tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&stock); err != nil {
		return 0, apperr.Internal("failed to read stock", err)
	}
	return stock, nil
}

// attachImages loads images for the given products in one query.
func (s *ProductService) attachImages(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]any, len(products))
	placeholders := make([]string, len(products))
	index := make(map[int64]*models.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		placeholders[i] = "?"
		index[products[i].ID] = &products[i]
	}

	query := "SELECT id, product_id, url, name, is_main, created_at FROM product_images WHERE product_id IN (" +
		strings.Join(placeholders, ",") + ") ORDER BY is_main DESC, id"
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, ids...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_images", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to query product images", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Name, &img.IsMain, &img.CreatedAt); err != nil {
			return apperr.Internal("failed to scan product image", err)
		}
		if p, ok := index[img.ProductID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return rows.Err()
}
