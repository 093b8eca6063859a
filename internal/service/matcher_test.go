package service

import (
	"context"
	"testing"

	"PriceSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherClustersAcrossRetailers(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")
	e.seed(t, "Santa Isabel", "santa-isabel")

	jumbo := e.ingest(t, "jumbo", "J-1", "Leche Entera 1L", "Lacteos", 1200, 0)
	lider := e.ingest(t, "lider", "L-1", "Leche Entera 1 Litro", "Lacteos", 999, 0)
	santa := e.ingest(t, "santa-isabel", "S-1", "Leche Entera 1L", "Lacteos", 1100, 0)
	skim := e.ingest(t, "lider", "L-2", "Leche Descremada 1L", "Lacteos", 950, 0)

	m, err := e.store.Matches.GetByMatchedProduct(ctx, lider.ProductID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, jumbo.ProductID, m.MasterProductID)
	assert.InDelta(t, 0.778, m.SimilarityScore, 0.001)

	master, err := e.store.Matches.GetByMatchedProduct(ctx, jumbo.ProductID)
	require.NoError(t, err)
	require.NotNil(t, master)
	assert.Equal(t, jumbo.ProductID, master.MasterProductID)
	assert.Equal(t, 1.0, master.SimilarityScore)

	joined, err := e.store.Matches.GetByMatchedProduct(ctx, santa.ProductID)
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.Equal(t, jumbo.ProductID, joined.MasterProductID)

	none, err := e.store.Matches.GetByMatchedProduct(ctx, skim.ProductID)
	require.NoError(t, err)
	assert.Nil(t, none, "0.5 similarity stays unclustered")

	detail, err := e.matcher.Cluster(ctx, jumbo.ProductID)
	require.NoError(t, err)
	assert.Len(t, detail.Members, 3)

	page, err := e.matcher.Clusters(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].Members)
	assert.Equal(t, "Leche Entera 1L", page.Items[0].Name)

	// 已聚类的商品重复匹配不变
	res, err := e.matcher.MatchProduct(ctx, lider.ProductID)
	require.NoError(t, err)
	assert.Equal(t, MatchAlready, res.Action)
}

func TestMatcherIgnoresSameRetailer(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")

	e.ingest(t, "jumbo", "J-1", "Leche Entera 1L", "Lacteos", 1200, 0)
	second := e.ingest(t, "jumbo", "J-2", "Leche Entera 1L", "Lacteos", 1150, 0)

	res, err := e.matcher.MatchProduct(ctx, second.ProductID)
	require.NoError(t, err)
	assert.Equal(t, MatchNone, res.Action)
}

func TestMatcherTieBreakLowestID(t *testing.T) {
	rec := &recordingDispatcher{}
	e := newEnv(t, rec)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")
	e.seed(t, "Unimarc", "unimarc")

	a := e.ingest(t, "jumbo", "J-1", "Arroz Grado 1 1kg", "Despensa", 1500, 0)
	b := e.ingest(t, "lider", "L-1", "Arroz Grado 1 1kg", "Despensa", 1400, 0)
	c := e.ingest(t, "unimarc", "U-1", "Arroz Grado 1 1kg", "Despensa", 1300, 0)
	require.Less(t, a.ProductID, b.ProductID)
	assert.Equal(t, []uint64{a.ProductID, b.ProductID, c.ProductID}, rec.ids)

	res, err := e.matcher.MatchProduct(ctx, c.ProductID)
	require.NoError(t, err)
	assert.Equal(t, MatchCreated, res.Action)
	assert.Equal(t, a.ProductID, res.CandidateID)
	assert.Equal(t, a.ProductID, res.MasterProductID)
	assert.Equal(t, 1.0, res.Score)

	// b 的最佳候选 a 已是代表商品，加入同一聚类
	res, err = e.matcher.MatchProduct(ctx, b.ProductID)
	require.NoError(t, err)
	assert.Equal(t, MatchJoined, res.Action)
	assert.Equal(t, a.ProductID, res.MasterProductID)
}

func TestMatcherUncategorizedStaysSingleton(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed(t, "Jumbo", "jumbo")
	e.seed(t, "Lider", "lider")

	a := e.ingest(t, "jumbo", "J-1", "Arroz Grado 1 1kg", "", 1500, 0)
	b := e.ingest(t, "lider", "L-1", "Arroz Grado 1 1kg", "", 1400, 0)

	for _, id := range []uint64{a.ProductID, b.ProductID} {
		res, err := e.matcher.MatchProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, MatchNone, res.Action)
	}
	page, err := e.matcher.Clusters(ctx, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestMatcherHandleMissingProduct(t *testing.T) {
	e := newEnv(t, nil)
	assert.NoError(t, e.matcher.Handle(context.Background(), 424242))

	_, err := e.matcher.Cluster(context.Background(), 424242)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
