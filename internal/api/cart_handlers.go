package api

import (
	"net/http"

	"github.com/shopstack/ecommerce-api/internal/models"
)

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	cart, err := a.cartService.GetCart(r.Context(), c.UserID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, cart)
}

// AddCartItemHandler handles POST /api/v1/cart
func (a *App) AddCartItemHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.AddCartItemRequest
	if !a.decode(w, r, &req) {
		return
	}
	cart, err := a.cartService.AddItem(r.Context(), c.UserID, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, cart)
}

// SetCartItemHandler handles PATCH /api/v1/cart/set
func (a *App) SetCartItemHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.SetCartItemRequest
	if !a.decode(w, r, &req) {
		return
	}
	cart, err := a.cartService.SetItemQuantity(r.Context(), c.UserID, req.CartItemID, req.Quantity)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, cart)
}

// AdjustCartItemHandler builds the increment and decrement handlers for
// PATCH /api/v1/cart/{itemID}/increment|decrement.
func (a *App) AdjustCartItemHandler(direction int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := claims(r)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		itemID, err := pathID(r, "itemID")
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		amount := 1
		if r.ContentLength > 0 {
			var req models.AdjustCartItemRequest
			if !a.decode(w, r, &req) {
				return
			}
			if req.Amount > 0 {
				amount = req.Amount
			}
		}
		cart, err := a.cartService.AdjustItem(r.Context(), c.UserID, itemID, direction*amount)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		a.respond(w, http.StatusOK, cart)
	}
}

// RemoveCartItemHandler handles DELETE /api/v1/cart/{itemID}
func (a *App) RemoveCartItemHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	cart, err := a.cartService.RemoveItem(r.Context(), c.UserID, itemID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, cart)
}

// ClearCartHandler handles DELETE /api/v1/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.cartService.Clear(r.Context(), c.UserID); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}
