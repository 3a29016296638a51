package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// CartService handles the per-user shopping cart. Each user has at most
// one cart, created lazily on the first item addition, with at most one
// line per product.
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	logger  zerolog.Logger
}

// NewCartService creates a new cart service
func NewCartService(database *db.DB, m *metrics.AppMetrics, logger zerolog.Logger) *CartService {
	return &CartService{db: database, metrics: m, logger: logger}
}

// lookupCart returns the user's cart, or nil without error when the
// user has none yet.
func (s *CartService) lookupCart(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	start := time.Now()
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?", userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", start, err == nil || errors.Is(err, sql.ErrNoRows))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to query cart", err)
	}
	return &cart, nil
}

// GetOrCreateCart returns the user's cart, creating it on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	now := time.Now()
	start := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)", userID, now, now)
	s.metrics.RecordDBQuery(ctx, "INSERT", "carts", start, err == nil)
	if err != nil {
		// Another request may have created the cart in between.
		if isDuplicateKey(err) {
			return s.GetOrCreateCart(ctx, userID)
		}
		return nil, apperr.Internal("failed to create cart", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get cart ID", err)
	}
	return &models.Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

// AddItem adds a product to the user's cart. If the product is already
// in the cart the quantity is added to the existing line; the combined
// quantity must not exceed the product's current stock.
func (s *CartService) AddItem(ctx context.Context, userID int64, req models.AddCartItemRequest) (*models.CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, apperr.InvalidInput("quantity must be positive")
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var itemID int64
	var quantity int
	err = s.db.QueryRowContext(ctx,
		"SELECT id, quantity FROM cart_items WHERE cart_id = ? AND product_id = ?",
		cart.ID, req.ProductID).Scan(&itemID, &quantity)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.validateStock(ctx, req.ProductID, req.Quantity); err != nil {
			return nil, err
		}
		start := time.Now()
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			cart.ID, req.ProductID, req.Quantity, now, now)
		s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", start, err == nil)
		if err != nil {
			return nil, apperr.Internal("failed to add cart item", err)
		}
	case err != nil:
		return nil, apperr.Internal("failed to query cart item", err)
	default:
		if err := s.validateStock(ctx, req.ProductID, quantity+req.Quantity); err != nil {
			return nil, err
		}
		start := time.Now()
		_, err = s.db.ExecContext(ctx,
			"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?",
			quantity+req.Quantity, now, itemID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", start, err == nil)
		if err != nil {
			return nil, apperr.Internal("failed to update cart item", err)
		}
	}

	return s.GetCart(ctx, userID)
}

// SetItemQuantity sets the quantity of a cart line. A quantity of zero
// or less removes the line; anything above the product's current stock
// is rejected.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartResponse, error) {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("cart item %d not found", itemID)
	}

	if quantity <= 0 {
		if err := s.deleteItem(ctx, cart.ID, itemID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, userID)
	}

	var productID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT product_id FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cart.ID).
		Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cart item %d not found", itemID)
	}
	if err != nil {
		return nil, apperr.Internal("failed to query cart item", err)
	}
	if err := s.validateStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ? AND cart_id = ?",
		quantity, time.Now(), itemID, cart.ID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to update cart item", err)
	}
	return s.GetCart(ctx, userID)
}

// AdjustItem changes a cart line's quantity by the given delta. If the
// resulting quantity drops to zero or below the line is removed.
func (s *CartService) AdjustItem(ctx context.Context, userID, itemID int64, delta int) (*models.CartResponse, error) {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("cart item %d not found", itemID)
	}

	var quantity int
	err = s.db.QueryRowContext(ctx,
		"SELECT quantity FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cart.ID).
		Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cart item %d not found", itemID)
	}
	if err != nil {
		return nil, apperr.Internal("failed to query cart item", err)
	}

	return s.SetItemQuantity(ctx, userID, itemID, quantity+delta)
}

// RemoveItem deletes a single line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (*models.CartResponse, error) {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("cart item %d not found", itemID)
	}
	if err := s.deleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// Clear removes every line from the user's cart. Clearing a cart that
// was never created is a no-op.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	start := time.Now()
	_, err = s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cart.ID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to clear cart", err)
	}
	return nil
}

// GetCart returns the user's cart with product snapshots and derived
// totals. Totals are computed from current product prices, not stored.
// A user without a cart gets an empty response; the cart row itself is
// only created on the first item addition.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.CartResponse, error) {
	cart, err := s.lookupCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.CartResponse{Items: []models.CartItemView{}}, nil
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.name, p.price, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.created_at, ci.id`, cart.ID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query cart items", err)
	}
	defer rows.Close()

	resp := &models.CartResponse{Cart: cart}
	for rows.Next() {
		var item models.CartItemView
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&item.Product.Name, &item.Product.Price, &item.Product.Stock,
		); err != nil {
			return nil, apperr.Internal("failed to scan cart item", err)
		}
		resp.Items = append(resp.Items, item)
		resp.TotalPrice += float64(item.Quantity) * item.Product.Price
	}
	resp.TotalItems = len(resp.Items)
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read cart items", err)
	}

	s.metrics.CartItemsCount.Record(ctx, int64(resp.TotalItems),
		metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	return resp, nil
}

func (s *CartService) deleteItem(ctx context.Context, cartID, itemID int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cartID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to delete cart item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("cart item %d not found", itemID)
	}
	return nil
}

// validateStock re-reads the product's current stock and rejects any
// requested quantity it cannot cover. Carts are provisional, so this is
// a plain read, not a locked one.
func (s *CartService) validateStock(ctx context.Context, productID int64, quantity int) error {
	var stock int
	err := s.db.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("product %d not found", productID)
	}
	if err != nil {
		return apperr.Internal("failed to query product", err)
	}
	if quantity > stock {
		return apperr.InsufficientStock("not enough stock for product %d: available %d", productID, stock)
	}
	return nil
}
