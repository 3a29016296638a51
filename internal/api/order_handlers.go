package api

import (
	"net/http"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/shopstack/ecommerce-api/internal/services"
)

// CreateOrderHandler handles POST /api/v1/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.CreateOrderRequest
	if !a.decode(w, r, &req) {
		return
	}
	order, err := a.orderService.CreateOrder(r.Context(), c.UserID, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, order)
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	list, err := a.orderService.ListOrders(r.Context(), services.ListOrdersOptions{
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
		Status: r.URL.Query().Get("status"),
		UserID: c.UserID,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, list)
}

// GetOrderHandler handles GET /api/v1/orders/{id}. Users can only see
// their own orders.
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	order, err := a.orderService.GetOrder(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if order.UserID != c.UserID {
		a.respondError(w, r, apperr.NotFound("order %d not found", id))
		return
	}
	a.respond(w, http.StatusOK, order)
}

// CompleteOrderHandler handles PATCH /api/v1/orders/{id}, the buyer's
// shortcut for completing their own pending order.
func (a *App) CompleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	order, err := a.orderService.GetOrder(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if order.UserID != c.UserID {
		a.respondError(w, r, apperr.NotFound("order %d not found", id))
		return
	}
	updated, err := a.orderService.UpdateStatus(r.Context(), id, models.OrderStatusCompleted)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, updated)
}
