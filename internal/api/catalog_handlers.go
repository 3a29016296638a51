package api

import (
	"net/http"
	"strconv"

	"github.com/shopstack/ecommerce-api/internal/models"
	"github.com/shopstack/ecommerce-api/internal/services"
)

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := services.ListProductsOptions{
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if v := q.Get("min_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			opts.MinPrice = &p
		}
	}
	if v := q.Get("max_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			opts.MaxPrice = &p
		}
	}

	list, err := a.productService.ListProducts(r.Context(), opts)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, list)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	product, err := a.productService.GetProduct(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, product)
}

// ListCategoriesHandler handles GET /api/v1/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.categoryService.ListCategories(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	a.respond(w, http.StatusOK, categories)
}

// GetCategoryHandler handles GET /api/v1/categories/{id}
func (a *App) GetCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	category, err := a.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, category)
}

// CreateCategoryHandler handles POST /api/v1/admin/categories
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if !a.decode(w, r, &req) {
		return
	}
	category, err := a.categoryService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, category)
}

// UpdateCategoryHandler handles PUT /api/v1/admin/categories/{id}
func (a *App) UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req models.CreateCategoryRequest
	if !a.decode(w, r, &req) {
		return
	}
	category, err := a.categoryService.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, category)
}

// DeleteCategoryHandler handles DELETE /api/v1/admin/categories/{id}
func (a *App) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.categoryService.DeleteCategory(r.Context(), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	a.respond(w, http.StatusNoContent, nil)
}
