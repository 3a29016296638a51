package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/models"
)

type fakeSender struct {
	sent []sentMail
	fail bool
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, to []string, subject, body string) error {
	if f.fail {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newNotificationFixture(t *testing.T, sender *fakeSender) (*NotificationService, int64) {
	t.Helper()
	database := newTestDB(t)
	svc := NewNotificationService(database, testMetrics(t), sender, "admin@example.com", testLogger())
	userID := seedUser(t, database, "Alice", "alice@example.com", models.RoleUser)
	return svc, userID
}

func TestNotificationRows(t *testing.T) {
	svc, userID := newNotificationFixture(t, &fakeSender{})
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, userID, "first"))
	require.NoError(t, svc.Create(ctx, userID, "second"))

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.False(t, list[0].IsRead)

	require.NoError(t, svc.MarkRead(ctx, userID, list[0].ID))
	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.True(t, list[0].IsRead)

	// Cannot mark another user's notification.
	err = svc.MarkRead(ctx, userID+1, list[1].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestNotifyOrderCompleted(t *testing.T) {
	sender := &fakeSender{}
	svc, userID := newNotificationFixture(t, sender)
	ctx := context.Background()

	user := &models.User{ID: userID, Name: "Alice", Email: "alice@example.com"}
	order := &models.Order{
		ID: 7, UserID: userID, Status: models.OrderStatusCompleted, Total: 120,
		Items: []models.OrderItem{
			{ProductID: 1, Quantity: 2, Price: 60, ProductName: "Keyboard", CreatedAt: time.Now()},
		},
	}
	svc.NotifyOrderCompleted(ctx, user, order)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "#7")

	// The confirmation goes to the buyer and a copy to the admin address.
	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].to)
	assert.Equal(t, []string{"admin@example.com"}, sender.sent[1].to)
	assert.Contains(t, sender.sent[0].body, "Keyboard")
	// 120 subtotal gets flat shipping and tax in the email.
	assert.Contains(t, sender.sent[0].body, "15.00")
}

func TestNotifyFailuresAreSwallowed(t *testing.T) {
	sender := &fakeSender{fail: true}
	svc, userID := newNotificationFixture(t, sender)
	ctx := context.Background()

	user := &models.User{ID: userID, Name: "Alice", Email: "alice@example.com"}
	order := &models.Order{ID: 7, UserID: userID, Total: 10}

	// Must not panic or propagate the SMTP error.
	svc.NotifyOrderCompleted(ctx, user, order)
	svc.NotifyLowStock(ctx, &models.Product{ID: 1, Name: "Widget"}, 3)

	// The in-app notification was still written.
	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, strings.Contains(list[0].Message, "completed"))
}
