package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/mailer"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// NotificationService stores in-app notifications and sends emails.
// Delivery is best effort: failures are logged and counted, never
// returned to the caller.
type NotificationService struct {
	db         *db.DB
	metrics    *metrics.AppMetrics
	mail       mailer.Sender
	logger     zerolog.Logger
	adminEmail string
}

// NewNotificationService creates a new notification service
func NewNotificationService(database *db.DB, m *metrics.AppMetrics, mail mailer.Sender, adminEmail string, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		db:         database,
		metrics:    m,
		mail:       mail,
		logger:     logger,
		adminEmail: adminEmail,
	}
}

// Create inserts an in-app notification for a user.
func (s *NotificationService) Create(ctx context.Context, userID int64, message string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?, ?, 0, ?)",
		userID, message, time.Now())
	s.metrics.RecordDBQuery(ctx, "INSERT", "notifications", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to create notification", err)
	}
	return nil
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, message, is_read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "notifications", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, apperr.Internal("failed to scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read. The user ID guards against
// marking another user's notification.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "notifications", start, err == nil)
	if err != nil {
		return apperr.Internal("failed to mark notification read", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("notification %d not found", id)
	}
	return nil
}

// NotifyOrderCompleted records an in-app notification and emails the
// buyer an order confirmation. Called after the order transaction has
// committed; nothing here can fail the order.
func (s *NotificationService) NotifyOrderCompleted(ctx context.Context, user *models.User, order *models.Order) {
	message := fmt.Sprintf("Your order #%d for $%.2f has been completed.", order.ID, order.Total)
	if err := s.Create(ctx, user.ID, message); err != nil {
		s.recordFailure(ctx, "order_completed", "db", err)
	}

	data := mailer.OrderEmailData{
		CustomerName: user.Name,
		OrderID:      order.ID,
		Subtotal:     order.Total,
	}
	for _, item := range order.Items {
		data.Lines = append(data.Lines, mailer.OrderEmailLine{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			LineTotal:   float64(item.Quantity) * item.Price,
		})
	}
	data.Shipping = ShippingFee(order.Total)
	data.Tax = order.Total * taxRate
	data.GrandTotal = order.Total + data.Shipping + data.Tax

	body, err := mailer.OrderConfirmationHTML(data)
	if err != nil {
		s.recordFailure(ctx, "order_completed", "template", err)
		return
	}
	subject := fmt.Sprintf("Order #%d confirmed", order.ID)
	if err := s.mail.Send(ctx, []string{user.Email}, subject, body); err != nil {
		s.recordFailure(ctx, "order_completed", "email", err)
	}
	if s.adminEmail != "" {
		if err := s.mail.Send(ctx, []string{s.adminEmail}, subject, body); err != nil {
			s.recordFailure(ctx, "order_completed", "admin_email", err)
		}
	}
}

// NotifyPaymentCompleted records an in-app notification and emails the
// buyer when a pending order's payment is captured.
func (s *NotificationService) NotifyPaymentCompleted(ctx context.Context, user *models.User, order *models.Order) {
	message := fmt.Sprintf("Payment for order #%d has been received.", order.ID)
	if err := s.Create(ctx, user.ID, message); err != nil {
		s.recordFailure(ctx, "payment_completed", "db", err)
	}

	shipping := ShippingFee(order.Total)
	body, err := mailer.PaymentCompletedHTML(mailer.OrderEmailData{
		CustomerName: user.Name,
		OrderID:      order.ID,
		Subtotal:     order.Total,
		Shipping:     shipping,
		Tax:          order.Total * taxRate,
		GrandTotal:   order.Total + shipping + order.Total*taxRate,
	})
	if err != nil {
		s.recordFailure(ctx, "payment_completed", "template", err)
		return
	}
	subject := fmt.Sprintf("Payment received for order #%d", order.ID)
	if err := s.mail.Send(ctx, []string{user.Email}, subject, body); err != nil {
		s.recordFailure(ctx, "payment_completed", "email", err)
	}
}

// NotifyLowStock alerts the admin address when a product's stock falls
// below the reorder threshold.
func (s *NotificationService) NotifyLowStock(ctx context.Context, product *models.Product, remaining int) {
	if s.adminEmail == "" {
		return
	}
	body, err := mailer.LowStockHTML(mailer.LowStockData{
		ProductName: product.Name,
		Stock:       remaining,
	})
	if err != nil {
		s.recordFailure(ctx, "low_stock", "template", err)
		return
	}
	subject := fmt.Sprintf("Low stock: %s (%d left)", product.Name, remaining)
	if err := s.mail.Send(ctx, []string{s.adminEmail}, subject, body); err != nil {
		s.recordFailure(ctx, "low_stock", "email", err)
	}
}

func (s *NotificationService) recordFailure(ctx context.Context, kind, channel string, err error) {
	s.logger.Warn().Err(err).Str("notification", kind).Str("channel", channel).
		Msg("notification delivery failed")
	s.metrics.NotificationFailures.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("notification", kind),
		attribute.String("channel", channel),
	})...))
}
