package api

import (
	"net/http"

	"github.com/shopstack/ecommerce-api/internal/models"
)

// RegisterHandler handles POST /api/v1/auth/register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.userService.Register(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, user)
}

// LoginHandler handles POST /api/v1/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !a.decode(w, r, &req) {
		return
	}
	pair, err := a.userService.Login(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, pair)
}

// RefreshHandler handles POST /api/v1/auth/refresh
func (a *App) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	pair, err := a.userService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, pair)
}

// ProfileHandler handles GET /api/v1/me
func (a *App) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.userService.GetProfile(r.Context(), c.UserID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, user)
}

// CustomerDashboardHandler handles GET /api/v1/me/dashboard
func (a *App) CustomerDashboardHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	overview, err := a.dashboardService.CustomerOverview(r.Context(), c.UserID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, overview)
}

// ListNotificationsHandler handles GET /api/v1/me/notifications
func (a *App) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	list, err := a.notificationService.List(r.Context(), c.UserID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	a.respond(w, http.StatusOK, list)
}

// MarkNotificationReadHandler handles PATCH /api/v1/me/notifications/{id}/read
func (a *App) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
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
	if err := a.notificationService.MarkRead(r.Context(), c.UserID, id); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, map[string]string{"status": "read"})
}
