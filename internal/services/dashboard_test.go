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

type dashboardFixture struct {
	*orderFixture
	svc *DashboardService
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	of := newOrderFixture(t, nil)
	m := testMetrics(t)
	maker := auth.NewMaker("s", "r", time.Hour, time.Hour)
	users := NewUserService(of.db, m, maker, testLogger())
	notifications := NewNotificationService(of.db, m, &fakeSender{}, "admin@example.com", testLogger())
	svc := NewDashboardService(of.db, m, of.svc, notifications, users)
	return &dashboardFixture{orderFixture: of, svc: svc}
}

func TestCustomerOverview(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	widget := seedProduct(t, f.db, f.merchant, f.catID, "Widget", 20.00, 100)

	for i := 0; i < 3; i++ {
		_, err := f.orderFixture.svc.CreateOrder(ctx, f.userID, models.CreateOrderRequest{
			Items: []models.OrderLine{{ProductID: widget, Quantity: 2}},
		})
		require.NoError(t, err)
	}

	overview, err := f.svc.CustomerOverview(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Buyer", overview.User.Name)
	assert.Equal(t, 3, overview.OrderCount)
	assert.Equal(t, 120.0, overview.TotalSpent)
	assert.Len(t, overview.RecentOrders, 3)

	t.Run("soft-deleted orders do not count", func(t *testing.T) {
		require.NoError(t, f.orderFixture.svc.SoftDelete(ctx, overview.RecentOrders[0].ID))
		overview, err := f.svc.CustomerOverview(ctx, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 2, overview.OrderCount)
		assert.Equal(t, 80.0, overview.TotalSpent)
	})

	_, err = f.svc.CustomerOverview(ctx, 9999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRevenue(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	widget := seedProduct(t, f.db, f.merchant, f.catID, "Widget", 50.00, 100)

	for i := 0; i < 2; i++ {
		_, err := f.orderFixture.svc.CreateOrder(ctx, f.userID, models.CreateOrderRequest{
			Items: []models.OrderLine{{ProductID: widget, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	summary, err := f.svc.Revenue(ctx, time.Now().Add(-24*time.Hour), "day")
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Total)
	assert.Equal(t, 2, summary.Orders)
	require.Len(t, summary.Buckets, 1)
	assert.Equal(t, 100.0, summary.Buckets[0].Revenue)

	t.Run("since cutoff excludes older orders", func(t *testing.T) {
		summary, err := f.svc.Revenue(ctx, time.Now().Add(time.Hour), "day")
		require.NoError(t, err)
		assert.Zero(t, summary.Total)
		assert.Empty(t, summary.Buckets)
	})

	_, err = f.svc.Revenue(ctx, time.Now(), "decade")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestRevenueWeeklyBuckets(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()
	widget := seedProduct(t, f.db, f.merchant, f.catID, "Widget", 100.00, 100)

	// Two orders in distinct ISO weeks whose backdated timestamps share
	// a day-of-month must land in separate weekly buckets.
	feb := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{feb, mar} {
		order, err := f.orderFixture.svc.CreateOrder(ctx, f.userID, models.CreateOrderRequest{
			Items: []models.OrderLine{{ProductID: widget, Quantity: 1}},
		})
		require.NoError(t, err)
		_, err = f.db.ExecContext(ctx, "UPDATE orders SET created_at = ? WHERE id = ?", at, order.ID)
		require.NoError(t, err)
	}

	summary, err := f.svc.Revenue(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "week")
	require.NoError(t, err)
	assert.Equal(t, 200.0, summary.Total)
	require.Len(t, summary.Buckets, 2)
	assert.Equal(t, "2026-W06", summary.Buckets[0].Period)
	assert.Equal(t, 100.0, summary.Buckets[0].Revenue)
	assert.Equal(t, "2026-W10", summary.Buckets[1].Period)
	assert.Equal(t, 100.0, summary.Buckets[1].Revenue)
}

func TestSalesByCategory(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()

	books := seedCategory(t, f.db, "Books")
	gadget := seedProduct(t, f.db, f.merchant, f.catID, "Gadget", 75.00, 100)
	novel := seedProduct(t, f.db, f.merchant, books, "Novel", 25.00, 100)

	_, err := f.orderFixture.svc.CreateOrder(ctx, f.userID, models.CreateOrderRequest{
		Items: []models.OrderLine{
			{ProductID: gadget, Quantity: 1},
			{ProductID: novel, Quantity: 1},
		},
	})
	require.NoError(t, err)

	sales, err := f.svc.SalesByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "Electronics", sales[0].Category)
	assert.Equal(t, 75.0, sales[0].Revenue)
	assert.InDelta(t, 75.0, sales[0].Percent, 0.001)
	assert.Equal(t, "Books", sales[1].Category)
	assert.InDelta(t, 25.0, sales[1].Percent, 0.001)
}
