package service

import (
	"context"
	"testing"

	"PriceSync/internal/model"
	"PriceSync/internal/repository"
	"PriceSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertIdempotent(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	sm := e.seed(t, "Jumbo", "jumbo")

	attrs := model.ProductAttributes{
		Name:     testutil.Ptr("Leche Entera 1L"),
		Brand:    testutil.Ptr("Colun"),
		Category: testutil.Ptr("Lacteos"),
	}
	first, created, err := e.catalog.Upsert(ctx, sm.ID, testutil.Ptr("J-1"), attrs)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "leche entera 1l", first.NormalizedName)
	assert.True(t, first.IsAvailable)

	// 第二次只带名称：品牌保留，名称变化重算规范化名称
	second, created, err := e.catalog.Upsert(ctx, sm.ID, testutil.Ptr("J-1"), model.ProductAttributes{
		Name: testutil.Ptr("Leche Entera Colun 1L"),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Brand)
	assert.Equal(t, "Colun", *second.Brand)
	assert.Equal(t, "leche entera colun 1l", second.NormalizedName)
	assert.False(t, second.LastScrapedAt.Before(first.LastScrapedAt))

	var n int64
	require.NoError(t, e.store.DB().Model(&model.Product{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestUpsertByNameWithoutExternalID(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	sm := e.seed(t, "Unimarc", "unimarc")

	a, created, err := e.catalog.Upsert(ctx, sm.ID, nil, model.ProductAttributes{Name: testutil.Ptr("Pan Hallulla")})
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := e.catalog.Upsert(ctx, sm.ID, nil, model.ProductAttributes{Name: testutil.Ptr("Pan Hallulla"), IsAvailable: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.False(t, b.IsAvailable)

	_, _, err = e.catalog.Upsert(ctx, sm.ID, nil, model.ProductAttributes{})
	assert.True(t, model.IsValidation(err))
}

func TestMergeProduct(t *testing.T) {
	existing := model.Product{
		ID:             1,
		Name:           "Yogurt Frutilla",
		NormalizedName: "yogurt frutilla",
		Brand:          testutil.Ptr("Soprole"),
		Unit:           testutil.Ptr("g"),
		IsAvailable:    true,
	}
	attrs := model.ProductAttributes{
		Brand:  testutil.Ptr("Nestle"),
		Images: []string{"a.jpg", "b.jpg"},
	}
	got := MergeProduct(existing, attrs, attrs.Presence())
	assert.Equal(t, "Yogurt Frutilla", got.Name)
	assert.Equal(t, "yogurt frutilla", got.NormalizedName)
	assert.Equal(t, "Nestle", *got.Brand)
	assert.Equal(t, "g", *got.Unit)
	assert.JSONEq(t, `["a.jpg","b.jpg"]`, string(got.Images))
	assert.True(t, got.IsAvailable)
}

func TestSearch(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.ingest(t, "jumbo", "1", "Leche Entera 1L", "", 1000, 0)
	e.ingest(t, "jumbo", "2", "Leche Descremada 1L", "", 1000, 0)
	e.ingest(t, "jumbo", "3", "Arroz Grado 1", "", 1500, 0)

	page, err := e.catalog.Search(ctx, "Léche", 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, hit := range page.Items {
		assert.Contains(t, hit.NormalizedName, "leche")
		assert.NotNil(t, hit.CurrentPrice)
	}

	page, err = e.catalog.Search(ctx, "leche entera", 0, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Leche Entera 1L", page.Items[0].Name)
	assert.True(t, page.HasMore)

	// 拼写错误只靠相似度命中
	page, err = e.catalog.Search(ctx, "aroz", 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Arroz Grado 1", page.Items[0].Name)

	page, err = e.catalog.Search(ctx, "lechee", 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = e.catalog.Search(ctx, "  !! ", 0, 10, 0)
	assert.True(t, model.IsValidation(err))
}

func TestFindSimilarWithinCategory(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")
	a := e.ingest(t, "jumbo", "1", "Leche Entera 1L", "Lacteos", 1000, 0)
	e.ingest(t, "lider", "2", "Leche Descremada 1L", "Lacteos", 1000, 0)
	e.ingest(t, "lider", "3", "Leche Entera 1L", "Otros", 1000, 0)

	hits, err := e.catalog.FindSimilarWithinCategory(ctx, "leche entera 1 litro", testutil.Ptr("Lacteos"), 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ProductID, hits[0].ProductID)
	assert.InDelta(t, 0.778, hits[0].Score, 0.001)
}

func TestCatalogListAndDelete(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	jumbo := e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")
	a := e.ingest(t, "jumbo", "1", "Leche Entera 1L", "Lacteos", 1000, 0)
	e.ingest(t, "jumbo", "2", "Queso Gauda", "Lacteos", 4000, 0)
	e.ingest(t, "lider", "3", "Arroz", "Despensa", 1500, 0)

	page, err := e.catalog.List(ctx, repository.ProductFilter{SupermarketID: jumbo.ID}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.NotNil(t, page.Items[0].CurrentPrice)

	page, err = e.catalog.List(ctx, repository.ProductFilter{Category: "Despensa"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 20, page.Limit)

	detail, err := e.catalog.Get(ctx, a.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "jumbo", detail.Supermarket.Slug)
	require.NotNil(t, detail.CurrentPrice)

	require.NoError(t, e.catalog.Delete(ctx, a.ProductID))
	_, err = e.catalog.Get(ctx, a.ProductID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, e.catalog.Delete(ctx, a.ProductID), model.ErrNotFound)
}
