package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"PriceSync/internal/adapter"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 同时拉取的超市数量上限
const syncConcurrency = 4

type FeedSyncService struct {
	store     *repository.Store
	ingestion *IngestionService
	registry  *adapter.FeedRegistry
	logger    *logrus.Logger
}

func NewFeedSyncService(store *repository.Store, ingestion *IngestionService, registry *adapter.FeedRegistry, logger *logrus.Logger) *FeedSyncService {
	return &FeedSyncService{
		store:     store,
		ingestion: ingestion,
		registry:  registry,
		logger:    logger,
	}
}

// SyncRetailer 拉取单个超市的数据源并批量入库
func (s *FeedSyncService) SyncRetailer(ctx context.Context, slug string) (*BatchReport, error) {
	// 1. 查询超市
	sm, err := s.store.Supermarkets.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("查询超市%s失败: %w", slug, err)
	}
	if sm == nil {
		return nil, fmt.Errorf("超市 %s: %w", slug, model.ErrNotFound)
	}
	if !sm.IsActive {
		return nil, fmt.Errorf("%s已停用", slug)
	}

	// 2. 获取数据源
	feed, err := s.registry.GetAdapter(slug)
	if err != nil {
		return nil, err
	}

	// 3. 拉取商品
	records, err := feed.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s拉取数据失败: %w", feed.GetName(), err)
	}
	if len(records) == 0 {
		s.logger.Warnf("%s未拉取到商品", feed.GetName())
	}

	// 4. 批量入库
	report, err := s.ingestion.IngestBatch(ctx, slug, records, SourceFeed)
	if err != nil {
		return report, fmt.Errorf("%s入库失败: %w", slug, err)
	}
	return report, nil
}

// SyncAll 并发同步所有启用且配置了数据源的超市，单个失败不影响其他超市
func (s *FeedSyncService) SyncAll(ctx context.Context) (map[string]*BatchReport, error) {
	var (
		mu      sync.Mutex
		reports = make(map[string]*BatchReport)
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for _, slug := range s.registry.ListRegistered() {
		slug := slug
		g.Go(func() error {
			report, err := s.SyncRetailer(gctx, slug)
			mu.Lock()
			defer mu.Unlock()
			if report != nil {
				reports[slug] = report
			}
			if err != nil {
				s.logger.WithError(err).WithField("slug", slug).Warn("超市同步失败")
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(logrus.Fields{"retailers": len(reports), "failed": len(errs)}).Info("数据源同步完成")
	return reports, errors.Join(errs...)
}
