package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/ecommerce-api/internal/apperr"
)

func TestCategoryCRUD(t *testing.T) {
	database := newTestDB(t)
	svc := NewCategoryService(database, testMetrics(t))
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, "  Electronics ")
	require.NoError(t, err)
	assert.Equal(t, "Electronics", created.Name)

	_, err = svc.CreateCategory(ctx, "Electronics")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = svc.CreateCategory(ctx, "   ")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = svc.CreateCategory(ctx, "Books")
	require.NoError(t, err)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Books", list[0].Name)

	got, err := svc.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	updated, err := svc.UpdateCategory(ctx, created.ID, "Gadgets")
	require.NoError(t, err)
	assert.Equal(t, "Gadgets", updated.Name)

	_, err = svc.UpdateCategory(ctx, 9999, "Ghost")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, svc.DeleteCategory(ctx, created.ID))
	_, err = svc.GetCategory(ctx, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.True(t, apperr.IsKind(svc.DeleteCategory(ctx, created.ID), apperr.KindNotFound))
}
