package service

import (
	"context"
	"testing"

	"PriceSync/internal/model"
	"PriceSync/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")
	e.seed(t, "Santa Isabel", "santa-isabel")

	jumbo := e.ingest(t, "jumbo", "J-1", "Leche Entera 1L", "Lacteos", 1200, 0)
	e.ingest(t, "lider", "L-1", "Leche Entera 1 Litro", "Lacteos", 999, 0)
	e.ingest(t, "santa-isabel", "S-1", "Leche Entera 1L", "Lacteos", 1300, 1100)

	res, err := e.comparison.Compare(ctx, jumbo.ProductID)
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	var prices, savings []int64
	for _, entry := range res.Entries {
		prices = append(prices, entry.EffectivePrice.IntPart())
		savings = append(savings, entry.SavingsVsBest.IntPart())
	}
	assert.Equal(t, []int64{999, 1100, 1200}, prices)
	assert.Equal(t, []int64{0, 101, 201}, savings)
	assert.True(t, res.Entries[0].IsBestDeal)
	assert.False(t, res.Entries[1].IsBestDeal)
	assert.True(t, res.Entries[1].HasOffer)
	assert.Equal(t, "lider", res.BestDeal.Supermarket.Slug)
	assert.Equal(t, int64(201), res.MaxSavings.IntPart())

	empty, err := e.comparison.Compare(ctx, 999999)
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
	assert.Nil(t, empty.BestDeal)
}

func TestCompareExcludesUnavailableAndInactive(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	lider := e.seed(t, "Lider", "lider")
	e.seed(t, "Unimarc", "unimarc")

	master := e.ingest(t, "jumbo", "J-1", "Aceite Maravilla 1L", "Despensa", 2500, 0)
	e.ingest(t, "lider", "L-1", "Aceite Maravilla 1L", "Despensa", 2100, 0)
	_, err := e.ingestion.Ingest(ctx, &model.ScrapedProduct{
		Supermarket: "unimarc",
		ExternalID:  testutil.Ptr("U-1"),
		Name:        "Aceite Maravilla 1L",
		Category:    testutil.Ptr("Despensa"),
		NormalPrice: dec(1900),
		IsAvailable: testutil.Ptr(false),
	})
	require.NoError(t, err)

	_, err = e.retailers.Update(ctx, lider.ID, model.SupermarketPatch{IsActive: testutil.Ptr(false)})
	require.NoError(t, err)

	res, err := e.comparison.Compare(ctx, master.ProductID)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "jumbo", res.Entries[0].Supermarket.Slug)
}

func TestOffersAndStats(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	jumbo := e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")

	e.ingest(t, "jumbo", "1", "Cafe", "", 1000, 900)
	e.ingest(t, "jumbo", "2", "Te", "", 1000, 500)
	e.ingest(t, "jumbo", "3", "Azucar", "", 3000, 0)
	e.ingest(t, "lider", "4", "Harina", "", 1000, 800)

	page, err := e.comparison.Offers(ctx, 0, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	assert.Equal(t, "Te", page.Items[0].ProductName)
	assert.Equal(t, "Harina", page.Items[1].ProductName)
	assert.Equal(t, "Cafe", page.Items[2].ProductName)

	page, err = e.comparison.Offers(ctx, jumbo.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.True(t, page.HasMore)

	stats, err := e.comparison.StatsByRetailer(ctx, jumbo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(2), stats.ProductsWithOffers)
	assert.True(t, stats.MinPrice.Decimal.Equal(dec(500)))
	assert.True(t, stats.MaxPrice.Decimal.Equal(dec(3000)))
	assert.True(t, stats.AvgPrice.Decimal.Equal(decimal.RequireFromString("1466.67")))
	assert.True(t, stats.AvgDiscount.Decimal.Equal(dec(30)))

	_, err = e.comparison.StatsByRetailer(ctx, 777)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
