package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/images"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/middleware"
	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/shopstack/ecommerce-api/internal/payment"
	"github.com/shopstack/ecommerce-api/internal/services"
	"github.com/shopstack/ecommerce-api/pkg/config"
)

// App holds application dependencies
type App struct {
	config  *config.Config
	db      *db.DB
	metrics *metrics.AppMetrics
	logger  zerolog.Logger
	tokens  *auth.Maker

	userService         *services.UserService
	productService      *services.ProductService
	categoryService     *services.CategoryService
	cartService         *services.CartService
	orderService        *services.OrderService
	notificationService *services.NotificationService
	dashboardService    *services.DashboardService

	payments *payment.Gateway
	uploader *images.Uploader
}

// Services bundles the service layer handed to NewApp.
type Services struct {
	Users         *services.UserService
	Products      *services.ProductService
	Categories    *services.CategoryService
	Carts         *services.CartService
	Orders        *services.OrderService
	Notifications *services.NotificationService
	Dashboards    *services.DashboardService
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, database *db.DB, m *metrics.AppMetrics, logger zerolog.Logger, tokens *auth.Maker, svcs Services, payments *payment.Gateway, uploader *images.Uploader) *App {
	return &App{
		config:              cfg,
		db:                  database,
		metrics:             m,
		logger:              logger,
		tokens:              tokens,
		userService:         svcs.Users,
		productService:      svcs.Products,
		categoryService:     svcs.Categories,
		cartService:         svcs.Carts,
		orderService:        svcs.Orders,
		notificationService: svcs.Notifications,
		dashboardService:    svcs.Dashboards,
		payments:            payments,
		uploader:            uploader,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoverMiddleware(a.logger))
	r.Use(middleware.MetricsMiddleware(a.metrics, a.logger))

	r.HandleFunc("/health", a.HealthHandler).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public
	api.HandleFunc("/auth/register", a.RegisterHandler).Methods("POST")
	api.HandleFunc("/auth/login", a.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/refresh", a.RefreshHandler).Methods("POST")
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/categories/{id}", a.GetCategoryHandler).Methods("GET")

	// Any authenticated user
	user := api.NewRoute().Subrouter()
	user.Use(middleware.RequireRole(a.tokens, models.RoleUser, models.RoleMerchant, models.RoleAdmin))

	user.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	user.HandleFunc("/cart", a.AddCartItemHandler).Methods("POST")
	user.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	user.HandleFunc("/cart/set", a.SetCartItemHandler).Methods("PATCH")
	user.HandleFunc("/cart/{itemID}/increment", a.AdjustCartItemHandler(1)).Methods("PATCH")
	user.HandleFunc("/cart/{itemID}/decrement", a.AdjustCartItemHandler(-1)).Methods("PATCH")
	user.HandleFunc("/cart/{itemID}", a.RemoveCartItemHandler).Methods("DELETE")

	user.HandleFunc("/orders", a.CreateOrderHandler).Methods("POST")
	user.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	user.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	user.HandleFunc("/orders/{id}", a.CompleteOrderHandler).Methods("PATCH")

	user.HandleFunc("/me", a.ProfileHandler).Methods("GET")
	user.HandleFunc("/me/dashboard", a.CustomerDashboardHandler).Methods("GET")
	user.HandleFunc("/me/notifications", a.ListNotificationsHandler).Methods("GET")
	user.HandleFunc("/me/notifications/{id}/read", a.MarkNotificationReadHandler).Methods("PATCH")

	// Merchant and admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(a.tokens, models.RoleMerchant, models.RoleAdmin))

	admin.HandleFunc("/orders", a.AdminListOrdersHandler).Methods("GET")
	admin.HandleFunc("/orders/{id}", a.AdminGetOrderHandler).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PUT")
	admin.HandleFunc("/orders/{id}", a.SoftDeleteOrderHandler).Methods("DELETE")
	admin.HandleFunc("/orders/{id}/restore", a.RestoreOrderHandler).Methods("PATCH")

	admin.HandleFunc("/products", a.CreateProductHandler).Methods("POST")
	admin.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	admin.HandleFunc("/products/{id}", a.DeleteProductHandler).Methods("DELETE")
	admin.HandleFunc("/products/{id}/images", a.UploadProductImageHandler).Methods("POST")

	admin.HandleFunc("/categories", a.CreateCategoryHandler).Methods("POST")
	admin.HandleFunc("/categories/{id}", a.UpdateCategoryHandler).Methods("PUT")
	admin.HandleFunc("/categories/{id}", a.DeleteCategoryHandler).Methods("DELETE")

	admin.HandleFunc("/dashboard/revenue", a.RevenueHandler).Methods("GET")
	admin.HandleFunc("/dashboard/category-sales", a.CategorySalesHandler).Methods("GET")

	admin.HandleFunc("/payments/intent", a.CreatePaymentIntentHandler).Methods("POST")
	admin.HandleFunc("/payments/{id}", a.PaymentStatusHandler).Methods("GET")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *App) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			a.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// respondError maps an application error onto its HTTP status and a
// stable JSON shape. Internal causes are logged, never rendered.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.respond(w, e.HTTPStatus(), map[string]any{
		"error": map[string]string{
			"kind":    string(e.Kind),
			"message": e.Message,
		},
	})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.respondError(w, r, apperr.InvalidInput("invalid request body"))
		return false
	}
	return true
}

// pathID parses the named integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// claims returns the authenticated caller. Routes behind RequireRole
// always have them; the error guards direct handler calls in tests.
func claims(r *http.Request) (*auth.Claims, error) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	return c, nil
}
