package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"PriceSync/internal/adapter"
	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jumboFeed = `[
  {"externalId": "J-1", "name": "Leche Entera 1L", "category": "Lacteos", "normalPrice": "$1.190", "offerPrice": "$990"},
  {"externalId": "J-2", "name": "Arroz Grado 1", "normalPrice": 1650}
]`

func TestFeedSync(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	dir := t.TempDir()
	jumboPath := filepath.Join(dir, "jumbo.json")
	require.NoError(t, os.WriteFile(jumboPath, []byte(jumboFeed), 0o600))

	retailers := []config.RetailerConfig{
		{Name: "Jumbo", Feed: config.FeedConfig{Type: "file", Path: jumboPath}},
		{Name: "Lider", Feed: config.FeedConfig{Type: "file", Path: filepath.Join(dir, "missing.json")}},
		{Name: "Unimarc"},
	}
	_, err := e.retailers.EnsureRetailers(ctx, retailers)
	require.NoError(t, err)

	registry, err := adapter.NewFeedRegistry(retailers, adapter.DefaultFactories(), testutil.NewLogger())
	require.NoError(t, err)
	feeds := NewFeedSyncService(e.store, e.ingestion, registry, testutil.NewLogger())

	report, err := feeds.SyncRetailer(ctx, "jumbo")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Run.Created)
	assert.Equal(t, SourceFeed, report.Run.Source)

	_, err = feeds.SyncRetailer(ctx, "unimarc")
	assert.Error(t, err, "no feed configured")
	_, err = feeds.SyncRetailer(ctx, "tottus")
	assert.ErrorIs(t, err, model.ErrNotFound)

	reports, err := feeds.SyncAll(ctx)
	assert.Error(t, err, "missing lider file is reported")
	require.Contains(t, reports, "jumbo")
	assert.NotContains(t, reports, "lider")
	assert.Equal(t, 2, reports["jumbo"].Run.Updated)

	lider, err := e.retailers.GetBySlug(ctx, "lider")
	require.NoError(t, err)
	_, err = e.retailers.Update(ctx, lider.ID, model.SupermarketPatch{IsActive: testutil.Ptr(false)})
	require.NoError(t, err)
	_, err = feeds.SyncRetailer(ctx, "lider")
	assert.Error(t, err)
}
