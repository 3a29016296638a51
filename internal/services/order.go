package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/shopstack/ecommerce-api/internal/payment"
)

const (
	// lowStockThreshold is the stock level at or below which a reorder
	// alert goes out after a sale.
	lowStockThreshold = 10

	// Orders over freeShippingOver ship free; everything else pays the
	// flat fee. Both figures feed the confirmation email, not the
	// stored order total.
	freeShippingOver = 500.0
	flatShippingFee  = 15.0

	taxRate = 0.10
)

// ShippingFee returns the shipping charge for an order subtotal.
func ShippingFee(subtotal float64) float64 {
	if subtotal > freeShippingOver {
		return 0
	}
	return flatShippingFee
}

// Notifier delivers post-order side effects. Implementations must be
// best effort: methods return nothing and may not fail the caller.
type Notifier interface {
	NotifyOrderCompleted(ctx context.Context, user *models.User, order *models.Order)
	NotifyPaymentCompleted(ctx context.Context, user *models.User, order *models.Order)
	NotifyLowStock(ctx context.Context, product *models.Product, remaining int)
}

// PaymentRecorder writes the payment row for an order inside the order
// transaction. It returns the recorded payment or an error, which
// aborts the whole order.
type PaymentRecorder func(ctx context.Context, tx *sql.Tx, order *models.Order, method string) (*models.Payment, error)

// OrderService owns the order lifecycle: placement, lookup, status
// transitions and soft deletion.
type OrderService struct {
	db            *db.DB
	metrics       *metrics.AppMetrics
	products      *ProductService
	users         *UserService
	notifier      Notifier
	recordPayment PaymentRecorder
	logger        zerolog.Logger
}

// NewOrderService creates a new order service. A nil recorder gets the
// default, which records the full amount as paid immediately.
func NewOrderService(database *db.DB, m *metrics.AppMetrics, products *ProductService, users *UserService, notifier Notifier, recorder PaymentRecorder, logger zerolog.Logger) *OrderService {
	s := &OrderService{
		db:            database,
		metrics:       m,
		products:      products,
		users:         users,
		notifier:      notifier,
		recordPayment: recorder,
		logger:        logger,
	}
	if s.recordPayment == nil {
		s.recordPayment = s.recordPaidPayment
	}
	return s
}

// recordPaidPayment is the default PaymentRecorder. It inserts a PAID
// payment for the order total, mirroring a gateway that captures
// synchronously.
func (s *OrderService) recordPaidPayment(ctx context.Context, tx *sql.Tx, order *models.Order, method string) (*models.Payment, error) {
	now := time.Now()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO payments (order_id, method, amount, status, paid_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		order.ID, method, order.Total, models.PaymentStatusPaid, now, now)
	if err != nil {
		return nil, apperr.Internal("failed to record payment", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, apperr.Internal("failed to get payment ID", err)
	}
	return &models.Payment{
		ID:        id,
		OrderID:   order.ID,
		Method:    method,
		Amount:    order.Total,
		Status:    models.PaymentStatusPaid,
		PaidAt:    &now,
		CreatedAt: now,
	}, nil
}

// orderLine is an order line with its price captured from the product
// at validation time.
type orderLine struct {
	product  models.Product
	quantity int
}

// CreateOrder places an order. The order row, its items, the stock
// decrements and the payment all commit in one transaction; if any
// product has too little stock nothing is written. Prices are captured
// at placement and survive later product price changes.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req models.CreateOrderRequest) (*models.Order, error) {
	user, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, total, err := s.validateLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = payment.MethodCard
	}

	now := time.Now()
	order := &models.Order{
		UserID:    userID,
		Status:    models.OrderStatusPending,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var lowStock []struct {
		product   models.Product
		remaining int
	}

	start := time.Now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO orders (user_id, status, total, is_deleted, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
			order.UserID, order.Status, order.Total, now, now)
		if err != nil {
			return apperr.Internal("failed to create order", err)
		}
		order.ID, err = result.LastInsertId()
		if err != nil {
			return apperr.Internal("failed to get order ID", err)
		}

		for _, line := range lines {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO order_items (order_id, product_id, quantity, price, created_at) VALUES (?, ?, ?, ?, ?)",
				order.ID, line.product.ID, line.quantity, line.product.Price, now)
			if err != nil {
				return apperr.Internal("failed to create order item", err)
			}
			order.Items = append(order.Items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.product.ID,
				Quantity:    line.quantity,
				Price:       line.product.Price,
				CreatedAt:   now,
				ProductName: line.product.Name,
			})

			remaining, err := s.products.DecrementStock(ctx, tx, line.product.ID, line.quantity)
			if err != nil {
				return err
			}
			if remaining <= lowStockThreshold {
				lowStock = append(lowStock, struct {
					product   models.Product
					remaining int
				}{line.product, remaining})
			}
		}

		pay, err := s.recordPayment(ctx, tx, order, method)
		if err != nil {
			return err
		}
		order.Payment = pay

		if pay.Status == models.PaymentStatusPaid {
			order.Status = models.OrderStatusCompleted
			if _, err := tx.ExecContext(ctx,
				"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
				order.Status, now, order.ID); err != nil {
				return apperr.Internal("failed to complete order", err)
			}
		}
		return nil
	})
	s.metrics.RecordDBQuery(ctx, "TX", "orders", start, err == nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("order_id", order.ID).Int64("user_id", userID).
		Float64("total", order.Total).Str("status", order.Status).
		Msg("order placed")

	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order_status", order.Status),
		attribute.String("payment_method", method),
	})
	s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.RevenueTotal.Add(ctx, order.Total, metric.WithAttributes(attrs...))

	// Side effects after commit only. None of these can undo the order.
	if s.notifier != nil {
		for _, ls := range lowStock {
			s.metrics.LowStockEvents.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
				attribute.Int64("product_id", ls.product.ID),
			})...))
			p := ls.product
			s.notifier.NotifyLowStock(ctx, &p, ls.remaining)
		}
		if order.Status == models.OrderStatusCompleted {
			s.notifier.NotifyOrderCompleted(ctx, user, order)
			s.notifier.NotifyPaymentCompleted(ctx, user, order)
		}
	}

	return order, nil
}

// validateLines resolves products, rejects bad quantities and duplicate
// products, and computes the order total from current prices.
func (s *OrderService) validateLines(ctx context.Context, items []models.OrderLine) ([]orderLine, float64, error) {
	if len(items) == 0 {
		return nil, 0, apperr.InvalidInput("order must contain at least one item")
	}

	seen := make(map[int64]bool, len(items))
	lines := make([]orderLine, 0, len(items))
	var total float64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, 0, apperr.InvalidInput("quantity for product %d must be positive", item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, 0, apperr.InvalidInput("product %d appears more than once", item.ProductID)
		}
		seen[item.ProductID] = true

		var product models.Product
		err := s.db.QueryRowContext(ctx,
			"SELECT id, merchant_id, category_id, name, price, stock FROM products WHERE id = ?",
			item.ProductID).Scan(&product.ID, &product.MerchantID, &product.CategoryID,
			&product.Name, &product.Price, &product.Stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, apperr.NotFound("product %d not found", item.ProductID)
		}
		if err != nil {
			return nil, 0, apperr.Internal("failed to query product", err)
		}
		if item.Quantity > product.Stock {
			return nil, 0, apperr.InsufficientStock("not enough stock for product %d: available %d", product.ID, product.Stock)
		}
		lines = append(lines, orderLine{product: product, quantity: item.Quantity})
		total += product.Price * float64(item.Quantity)
	}
	return lines, total, nil
}

// GetOrder returns an order with its items and payment. Soft-deleted
// orders are still returned so admins can inspect and restore them.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	start := time.Now()
	var order models.Order
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, status, total, is_deleted, deleted_at, created_at, updated_at FROM orders WHERE id = ?",
		orderID).Scan(
		&order.ID, &order.UserID, &order.Status, &order.Total,
		&order.IsDeleted, &order.DeletedAt, &order.CreatedAt, &order.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil || errors.Is(err, sql.ErrNoRows))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, apperr.Internal("failed to get order", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at, p.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, apperr.Internal("failed to query order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.Price, &item.CreatedAt, &item.ProductName); err != nil {
			return nil, apperr.Internal("failed to scan order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read order items", err)
	}

	var pay models.Payment
	err = s.db.QueryRowContext(ctx,
		"SELECT id, order_id, method, amount, status, paid_at, created_at FROM payments WHERE order_id = ? ORDER BY id DESC LIMIT 1",
		orderID).Scan(&pay.ID, &pay.OrderID, &pay.Method, &pay.Amount, &pay.Status, &pay.PaidAt, &pay.CreatedAt)
	if err == nil {
		order.Payment = &pay
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Internal("failed to query payment", err)
	}

	return &order, nil
}

// ListOrdersOptions filters paginated order listings.
type ListOrdersOptions struct {
	Page   int
	Limit  int
	Status string
	// UserID narrows to one user's orders when non-zero.
	UserID int64
	// IncludeDeleted adds soft-deleted orders, for admin views.
	IncludeDeleted bool
	// From and Until bound the creation time when non-zero.
	From  time.Time
	Until time.Time
}

// ListOrders returns a page of orders, newest first. Soft-deleted
// orders are excluded unless asked for.
func (s *OrderService) ListOrders(ctx context.Context, opts ListOrdersOptions) (*models.OrderList, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.Status != "" && !models.ValidOrderStatus(opts.Status) {
		return nil, apperr.InvalidInput("unknown order status %q", opts.Status)
	}

	where := []string{"1=1"}
	args := []any{}
	if !opts.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if opts.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if !opts.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.From)
	}
	if !opts.Until.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, opts.Until)
	}
	cond := strings.Join(where, " AND ")

	var total int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE "+cond, args...).Scan(&total)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to count orders", err)
	}

	pageArgs := append(append([]any{}, args...), opts.Limit, (opts.Page-1)*opts.Limit)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, status, total, is_deleted, deleted_at, created_at, updated_at FROM orders WHERE "+cond+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, apperr.Internal("failed to query orders", err)
	}
	defer rows.Close()

	list := &models.OrderList{
		Data: []models.Order{},
		Meta: models.ListMeta{
			Total:      total,
			Page:       opts.Page,
			Limit:      opts.Limit,
			TotalPages: (total + opts.Limit - 1) / opts.Limit,
		},
	}
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.Total,
			&order.IsDeleted, &order.DeletedAt, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, apperr.Internal("failed to scan order", err)
		}
		list.Data = append(list.Data, order)
	}
	return list, rows.Err()
}

// UpdateStatus transitions an order. PENDING may move to COMPLETED or
// CANCELED; the terminal states never change again.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, apperr.InvalidInput("unknown order status %q", status)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if order.Status != models.OrderStatusPending {
		return nil, apperr.Conflict("order %d is already %s", orderID, order.Status)
	}

	now := time.Now()
	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", status, now, orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to update order status", err)
	}
	order.Status = status

	// Completing a pending order means its payment was captured.
	if status == models.OrderStatusCompleted {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE payments SET status = ?, paid_at = ? WHERE order_id = ? AND status = ?",
			models.PaymentStatusPaid, now, orderID, models.PaymentStatusPending); err != nil {
			s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("failed to mark payment paid")
		}
		if s.notifier != nil {
			if user, err := s.users.GetProfile(ctx, order.UserID); err == nil {
				s.notifier.NotifyPaymentCompleted(ctx, user, order)
			}
		}
	}

	s.logger.Info().Int64("order_id", orderID).Str("status", status).Msg("order status updated")
	return order, nil
}

// SoftDelete hides an order from listings without losing the rows.
func (s *OrderService) SoftDelete(ctx context.Context, orderID int64) error {
	now := time.Now()
	start := now
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ? AND is_deleted = 0",
		now, now, orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to delete order", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("order %d not found", orderID)
	}
	return nil
}

// Restore undoes a soft delete.
func (s *OrderService) Restore(ctx context.Context, orderID int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_deleted = 0, deleted_at = NULL, updated_at = ? WHERE id = ? AND is_deleted = 1",
		time.Now(), orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to restore order", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("order %d not found or not deleted", orderID)
	}
	return nil
}
