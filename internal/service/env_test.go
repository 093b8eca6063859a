package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"
	"PriceSync/internal/queue"
	"PriceSync/internal/repository"
	"PriceSync/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Matching:   config.MatchingConfig{Threshold: 0.65, MaxCandidates: 10},
		Ingest:     config.IngestConfig{ConflictRetries: 3, BackoffBase: time.Millisecond, DefaultCurrency: "CLP"},
		Pagination: config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100, HistoryLimit: 30},
	}
}

// testEnv 基于内存库的完整服务图
type testEnv struct {
	store      *repository.Store
	cfg        *config.Config
	retailers  *RetailerService
	catalog    *CatalogService
	ledger     *LedgerService
	matcher    *MatcherService
	comparison *ComparisonService
	ingestion  *IngestionService
}

// newEnv dispatcher 为 nil 时入库后同步执行匹配
func newEnv(t *testing.T, dispatcher interfaces.MatchDispatcher) *testEnv {
	t.Helper()
	store := testutil.NewStore(t)
	cfg := testConfig()
	logger := testutil.NewLogger()

	e := &testEnv{store: store, cfg: cfg}
	e.retailers = NewRetailerService(store, logger)
	e.catalog = NewCatalogService(store, logger, cfg)
	e.ledger = NewLedgerService(store, logger, cfg)
	e.matcher = NewMatcherService(store, e.catalog, logger, cfg)
	e.comparison = NewComparisonService(store, logger, cfg)
	if dispatcher == nil {
		dispatcher = queue.NewInlineDispatcher(e.matcher.Handle)
	}
	e.ingestion = NewIngestionService(store, e.catalog, e.ledger, dispatcher, logger, cfg)
	return e
}

func (e *testEnv) seed(t *testing.T, name, slug string) *model.Supermarket {
	t.Helper()
	return testutil.SeedSupermarket(t, e.store, name, slug)
}

// ingest 写入一条记录，offer 为 0 表示无优惠
func (e *testEnv) ingest(t *testing.T, slug, extID, name, category string, normal, offer int64) *IngestResult {
	t.Helper()
	rec := &model.ScrapedProduct{
		Supermarket: slug,
		Name:        name,
		NormalPrice: decimal.NewFromInt(normal),
	}
	if extID != "" {
		rec.ExternalID = testutil.Ptr(extID)
	}
	if category != "" {
		rec.Category = testutil.Ptr(category)
	}
	if offer > 0 {
		rec.OfferPrice = decimal.NewNullDecimal(decimal.NewFromInt(offer))
	}
	res, err := e.ingestion.Ingest(context.Background(), rec)
	require.NoError(t, err)
	return res
}

func (e *testEnv) countCurrent(t *testing.T, productID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.store.DB().Model(&model.Price{}).
		Where("product_id = ? AND is_current = ?", productID, true).Count(&n).Error)
	return n
}

// recordingDispatcher 记录投递的商品 id
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []uint64
	err error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, productID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, productID)
	return d.err
}
