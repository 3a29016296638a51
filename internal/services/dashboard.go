package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

// DashboardService builds read-only projections for the customer and
// merchant dashboards. Nothing here writes.
type DashboardService struct {
	db            *db.DB
	metrics       *metrics.AppMetrics
	orders        *OrderService
	notifications *NotificationService
	users         *UserService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(database *db.DB, m *metrics.AppMetrics, orders *OrderService, notifications *NotificationService, users *UserService) *DashboardService {
	return &DashboardService{
		db:            database,
		metrics:       m,
		orders:        orders,
		notifications: notifications,
		users:         users,
	}
}

// CustomerDashboard is the customer's account overview.
type CustomerDashboard struct {
	User          *models.User          `json:"user"`
	TotalSpent    float64               `json:"total_spent"`
	OrderCount    int                   `json:"order_count"`
	RecentOrders  []models.Order        `json:"recent_orders"`
	Notifications []models.Notification `json:"notifications"`
}

// CustomerOverview aggregates a customer's spend, order count, recent
// orders and notifications. Spend counts completed, non-deleted orders
// only.
func (s *DashboardService) CustomerOverview(ctx context.Context, userID int64) (*CustomerDashboard, error) {
	user, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var totalSpent float64
	var orderCount int
	start := time.Now()
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders WHERE user_id = ? AND status = ? AND is_deleted = 0",
		userID, models.OrderStatusCompleted).Scan(&orderCount, &totalSpent)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to aggregate orders", err)
	}

	recent, err := s.orders.ListOrders(ctx, ListOrdersOptions{UserID: userID, Limit: 5})
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CustomerDashboard{
		User:          user,
		TotalSpent:    totalSpent,
		OrderCount:    orderCount,
		RecentOrders:  recent.Data,
		Notifications: notifications,
	}, nil
}

// RevenueBucket is one period's revenue in a breakdown.
type RevenueBucket struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// RevenueSummary is total revenue with a per-period breakdown.
type RevenueSummary struct {
	Total   float64         `json:"total"`
	Orders  int             `json:"orders"`
	Buckets []RevenueBucket `json:"breakdown"`
}

// Revenue sums completed, non-deleted orders since the given time and
// buckets them by day, week or month. Bucketing happens in Go so the
// query stays portable across databases.
func (s *DashboardService) Revenue(ctx context.Context, since time.Time, period string) (*RevenueSummary, error) {
	var keyFor func(time.Time) string
	switch period {
	case "day", "":
		keyFor = func(t time.Time) string { return t.Format("2006-01-02") }
	case "week":
		keyFor = func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}
	case "month":
		keyFor = func(t time.Time) string { return t.Format("2006-01") }
	default:
		return nil, apperr.InvalidInput("period must be day, week or month")
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		"SELECT total, created_at FROM orders WHERE status = ? AND is_deleted = 0 AND created_at >= ? ORDER BY created_at",
		models.OrderStatusCompleted, since)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query revenue", err)
	}
	defer rows.Close()

	summary := &RevenueSummary{}
	index := make(map[string]int)
	for rows.Next() {
		var total float64
		var createdAt time.Time
		if err := rows.Scan(&total, &createdAt); err != nil {
			return nil, apperr.Internal("failed to scan order", err)
		}
		summary.Total += total
		summary.Orders++

		key := keyFor(createdAt)
		i, ok := index[key]
		if !ok {
			i = len(summary.Buckets)
			index[key] = i
			summary.Buckets = append(summary.Buckets, RevenueBucket{Period: key})
		}
		summary.Buckets[i].Revenue += total
		summary.Buckets[i].Orders++
	}
	return summary, rows.Err()
}

// CategorySales is one category's share of completed order revenue.
type CategorySales struct {
	CategoryID int64   `json:"category_id"`
	Category   string  `json:"category"`
	Units      int     `json:"units"`
	Revenue    float64 `json:"revenue"`
	Percent    float64 `json:"percent"`
}

// SalesByCategory breaks completed order revenue down by product
// category, with each category's percentage share of the total.
func (s *DashboardService) SalesByCategory(ctx context.Context) ([]CategorySales, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.quantity * oi.price), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.status = ? AND o.is_deleted = 0
		GROUP BY c.id, c.name
		ORDER BY SUM(oi.quantity * oi.price) DESC`, models.OrderStatusCompleted)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", start, err == nil)
	if err != nil {
		return nil, apperr.Internal("failed to query category sales", err)
	}
	defer rows.Close()

	var sales []CategorySales
	var grand float64
	for rows.Next() {
		var cs CategorySales
		if err := rows.Scan(&cs.CategoryID, &cs.Category, &cs.Units, &cs.Revenue); err != nil {
			return nil, apperr.Internal("failed to scan category sales", err)
		}
		sales = append(sales, cs)
		grand += cs.Revenue
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read category sales", err)
	}

	if grand > 0 {
		for i := range sales {
			sales[i].Percent = sales[i].Revenue / grand * 100
		}
	}
	return sales, nil
}
