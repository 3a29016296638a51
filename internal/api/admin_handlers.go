package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/shopstack/ecommerce-api/internal/payment"
	"github.com/shopstack/ecommerce-api/internal/services"
)

// AdminListOrdersHandler handles GET /api/v1/admin/orders
func (a *App) AdminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := services.ListOrdersOptions{
		Page:           queryInt(r, "page"),
		Limit:          queryInt(r, "limit"),
		Status:         q.Get("status"),
		UserID:         int64(queryInt(r, "user_id")),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			a.respondError(w, r, apperr.InvalidInput("from must be YYYY-MM-DD"))
			return
		}
		opts.From = parsed
	}
	if v := q.Get("until"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			a.respondError(w, r, apperr.InvalidInput("until must be YYYY-MM-DD"))
			return
		}
		opts.Until = parsed.AddDate(0, 0, 1)
	}
	list, err := a.orderService.ListOrders(r.Context(), opts)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, list)
}

// AdminGetOrderHandler handles GET /api/v1/admin/orders/{id}
func (a *App) AdminGetOrderHandler(w http.ResponseWriter, r *http.Request) {
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
	a.respond(w, http.StatusOK, order)
}

// UpdateOrderStatusHandler handles PUT /api/v1/admin/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.UpdateOrderStatusRequest
	if !a.decode(w, r, &req) {
		return
	}
	order, err := a.orderService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, order)
}

// SoftDeleteOrderHandler handles DELETE /api/v1/admin/orders/{id}
func (a *App) SoftDeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.orderService.SoftDelete(r.Context(), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}

// RestoreOrderHandler handles PATCH /api/v1/admin/orders/{id}/restore
func (a *App) RestoreOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.orderService.Restore(r.Context(), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, map[string]string{"status": "restored"})
}

// CreateProductHandler handles POST /api/v1/admin/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	c, err := claims(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.CreateProductRequest
	if !a.decode(w, r, &req) {
		return
	}
	product, err := a.productService.CreateProduct(r.Context(), c.UserID, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, product)
}

// UpdateProductHandler handles PUT /api/v1/admin/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.CreateProductRequest
	if !a.decode(w, r, &req) {
		return
	}
	product, err := a.productService.UpdateProduct(r.Context(), id, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/v1/admin/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.productService.DeleteProduct(r.Context(), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}

// UploadProductImageHandler handles POST /api/v1/admin/products/{id}/images.
// The multipart "file" part goes to the image host; the returned URL is
// stored against the product.
func (a *App) UploadProductImageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if _, err := a.productService.GetProduct(r.Context(), id); err != nil {
		a.respondError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondError(w, r, apperr.InvalidInput("missing file upload"))
		return
	}
	defer file.Close()

	upload, err := a.uploader.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	isMain := r.FormValue("is_main") == "true"
	image, err := a.productService.AddImage(r.Context(), id, upload.URL, upload.Name, isMain)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, image)
}

// RevenueHandler handles GET /api/v1/admin/dashboard/revenue
func (a *App) RevenueHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since := time.Now().AddDate(0, -1, 0)
	if v := q.Get("since"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			a.respondError(w, r, apperr.InvalidInput("since must be YYYY-MM-DD"))
			return
		}
		since = parsed
	}
	summary, err := a.dashboardService.Revenue(r.Context(), since, q.Get("period"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, summary)
}

// CategorySalesHandler handles GET /api/v1/admin/dashboard/category-sales
func (a *App) CategorySalesHandler(w http.ResponseWriter, r *http.Request) {
	sales, err := a.dashboardService.SalesByCategory(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if sales == nil {
		sales = []services.CategorySales{}
	}
	a.respond(w, http.StatusOK, sales)
}

// CreatePaymentIntentHandler handles POST /api/v1/admin/payments/intent
func (a *App) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       float64 `json:"amount"`
		Currency     string  `json:"currency"`
		Method       string  `json:"method"`
		BillingName  string  `json:"billing_name"`
		BillingEmail string  `json:"billing_email"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}
	intent, err := a.payments.CreateIntent(r.Context(), payment.IntentRequest{
		Amount:       req.Amount,
		Currency:     req.Currency,
		Method:       req.Method,
		BillingName:  req.BillingName,
		BillingEmail: req.BillingEmail,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.metrics.PaymentIntentsTotal.Add(r.Context(), 1, metric.WithAttributes(a.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("method", req.Method),
		attribute.String("currency", req.Currency),
	})...))
	a.respond(w, http.StatusCreated, intent)
}

// PaymentStatusHandler handles GET /api/v1/admin/payments/{id}
func (a *App) PaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	intentID := mux.Vars(r)["id"]
	if intentID == "" {
		a.respondError(w, r, apperr.InvalidInput("invalid payment id"))
		return
	}
	status, err := a.payments.GetStatus(r.Context(), intentID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, map[string]string{"id": intentID, "status": status})
}
