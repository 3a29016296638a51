package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/shopstack/ecommerce-api/internal/models"
)

func newProductFixture(t *testing.T) (*ProductService, int64, int64) {
	t.Helper()
	database := newTestDB(t)
	svc := NewProductService(database, testMetrics(t), testLogger())
	merchantID := seedUser(t, database, "Merchant", "merchant@example.com", models.RoleMerchant)
	categoryID := seedCategory(t, database, "Electronics")
	return svc, merchantID, categoryID
}

func TestCreateProduct(t *testing.T) {
	svc, merchantID, categoryID := newProductFixture(t)
	ctx := context.Background()

	desc := "Noise cancelling"
	product, err := svc.CreateProduct(ctx, merchantID, models.CreateProductRequest{
		CategoryID:  categoryID,
		Name:        "Headphones",
		Description: &desc,
		Price:       199.99,
		Stock:       25,
	})
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, merchantID, product.MerchantID)
	assert.Equal(t, 25, product.Stock)

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, merchantID, models.CreateProductRequest{
			CategoryID: categoryID, Name: "  ", Price: 1, Stock: 1,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, merchantID, models.CreateProductRequest{
			CategoryID: categoryID, Name: "Bad", Price: -1, Stock: 1,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, merchantID, models.CreateProductRequest{
			CategoryID: 9999, Name: "Orphan", Price: 1, Stock: 1,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestGetProduct(t *testing.T) {
	svc, merchantID, categoryID := newProductFixture(t)
	ctx := context.Background()

	id := seedProduct(t, svc.db, merchantID, categoryID, "Keyboard", 79.50, 12)
	_, err := svc.AddImage(ctx, id, "https://img.example.com/kb.png", "kb.png", true)
	require.NoError(t, err)

	product, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", product.Name)
	require.Len(t, product.Images, 1)
	assert.True(t, product.Images[0].IsMain)

	_, err = svc.GetProduct(ctx, 9999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListProducts(t *testing.T) {
	svc, merchantID, categoryID := newProductFixture(t)
	ctx := context.Background()
	otherCategory := seedCategory(t, svc.db, "Books")

	seedProduct(t, svc.db, merchantID, categoryID, "Cheap Mouse", 9.99, 5)
	seedProduct(t, svc.db, merchantID, categoryID, "Gaming Mouse", 59.99, 5)
	seedProduct(t, svc.db, merchantID, otherCategory, "Go Cookbook", 39.99, 5)

	t.Run("all", func(t *testing.T) {
		list, err := svc.ListProducts(ctx, ListProductsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, list.Meta.Total)
		assert.Equal(t, 1, list.Meta.Page)
		assert.Equal(t, 10, list.Meta.Limit)
	})

	t.Run("search", func(t *testing.T) {
		list, err := svc.ListProducts(ctx, ListProductsOptions{Search: "mouse"})
		require.NoError(t, err)
		assert.Equal(t, 2, list.Meta.Total)
	})

	t.Run("category filter", func(t *testing.T) {
		list, err := svc.ListProducts(ctx, ListProductsOptions{Category: "Books"})
		require.NoError(t, err)
		require.Len(t, list.Data, 1)
		assert.Equal(t, "Go Cookbook", list.Data[0].Name)
	})

	t.Run("price range", func(t *testing.T) {
		min, max := 30.0, 60.0
		list, err := svc.ListProducts(ctx, ListProductsOptions{MinPrice: &min, MaxPrice: &max})
		require.NoError(t, err)
		assert.Equal(t, 2, list.Meta.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := svc.ListProducts(ctx, ListProductsOptions{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, list.Data, 1)
		assert.Equal(t, 2, list.Meta.TotalPages)
	})
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	svc, merchantID, categoryID := newProductFixture(t)
	ctx := context.Background()

	id := seedProduct(t, svc.db, merchantID, categoryID, "Monitor", 250, 8)

	updated, err := svc.UpdateProduct(ctx, id, models.CreateProductRequest{
		CategoryID: categoryID, Name: "Monitor 27in", Price: 230, Stock: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "Monitor 27in", updated.Name)
	assert.Equal(t, 230.0, updated.Price)

	_, err = svc.UpdateProduct(ctx, 9999, models.CreateProductRequest{
		CategoryID: categoryID, Name: "Ghost", Price: 1, Stock: 1,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, svc.DeleteProduct(ctx, id))
	_, err = svc.GetProduct(ctx, id)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = svc.DeleteProduct(ctx, id)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDecrementStock(t *testing.T) {
	svc, merchantID, categoryID := newProductFixture(t)
	ctx := context.Background()

	id := seedProduct(t, svc.db, merchantID, categoryID, "Widget", 10, 5)

	t.Run("sufficient stock", func(t *testing.T) {
		err := svc.db.WithTx(ctx, func(tx *sql.Tx) error {
			remaining, err := svc.DecrementStock(ctx, tx, id, 3)
			require.NoError(t, err)
			assert.Equal(t, 2, remaining)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, productStock(t, svc.db, id))
	})

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		err := svc.db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := svc.DecrementStock(ctx, tx, id, 3)
			return err
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
		assert.Equal(t, 2, productStock(t, svc.db, id))
	})

	t.Run("unknown product", func(t *testing.T) {
		err := svc.db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := svc.DecrementStock(ctx, tx, 9999, 1)
			return err
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	})
}
