package service

import (
	"context"
	"errors"
	"fmt"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// MatchAction 匹配结果类型
type MatchAction string

const (
	MatchJoined  MatchAction = "joined"  // 加入已有聚类
	MatchCreated MatchAction = "created" // 新建聚类
	MatchNone    MatchAction = "none"    // 无候选，保持单品
	MatchAlready MatchAction = "already" // 已属于某聚类
)

// MatchResult 单个商品的聚类决策
type MatchResult struct {
	ProductID       uint64      `json:"productId"`
	Action          MatchAction `json:"action"`
	MasterProductID uint64      `json:"masterProductId,omitempty"`
	CandidateID     uint64      `json:"candidateId,omitempty"`
	Score           float64     `json:"score,omitempty"`
}

// MatcherService 跨超市同款聚类
type MatcherService struct {
	store         *repository.Store
	catalog       *CatalogService
	logger        *logrus.Logger
	threshold     float64
	maxCandidates int
	pager         Pager
	retry         conflictRetry
}

func NewMatcherService(store *repository.Store, catalog *CatalogService, logger *logrus.Logger, cfg *config.Config) *MatcherService {
	s := &MatcherService{
		store:         store,
		catalog:       catalog,
		logger:        logger,
		threshold:     cfg.Matching.Threshold,
		maxCandidates: cfg.Matching.MaxCandidates,
		pager:         NewPager(cfg.Pagination),
		retry:         newConflictRetry(cfg.Ingest),
	}
	if s.threshold <= 0 {
		s.threshold = 0.65
	}
	if s.maxCandidates <= 0 {
		s.maxCandidates = 10
	}
	return s
}

// MatchProduct 为商品寻找其他超市的同款：
// 最佳候选已在聚类中则加入；否则以候选为代表新建聚类；无候选则保持单品
func (s *MatcherService) MatchProduct(ctx context.Context, productID uint64) (*MatchResult, error) {
	p, err := s.store.Products.GetByID(ctx, productID, false)
	if err != nil {
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("商品 %d: %w", productID, model.ErrNotFound)
	}

	existing, err := s.store.Matches.GetByMatchedProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("查询聚类失败: %w", err)
	}
	if existing != nil {
		return &MatchResult{ProductID: productID, Action: MatchAlready, MasterProductID: existing.MasterProductID, Score: existing.SimilarityScore}, nil
	}

	hits, err := s.catalog.findSimilar(ctx, similarQuery{
		name:                 p.NormalizedName,
		category:             p.Category,
		excludeProductID:     p.ID,
		excludeSupermarketID: p.SupermarketID,
		threshold:            s.threshold,
		limit:                s.maxCandidates,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &MatchResult{ProductID: productID, Action: MatchNone}, nil
	}
	best := hits[0]

	var result *MatchResult
	err = s.retry.do(ctx, func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			var err error
			result, err = s.assign(ctx, tx, productID, best)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("写入聚类失败: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"candidate":  best.ProductID,
		"master":     result.MasterProductID,
		"score":      best.Score,
		"action":     result.Action,
	}).Debug("商品匹配完成")
	return result, nil
}

func (s *MatcherService) assign(ctx context.Context, tx *repository.Store, productID uint64, best model.SimilarProduct) (*MatchResult, error) {
	// 并发情况下可能已被其他 worker 聚类
	mine, err := tx.Matches.GetByMatchedProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if mine != nil {
		return &MatchResult{ProductID: productID, Action: MatchAlready, MasterProductID: mine.MasterProductID, Score: mine.SimilarityScore}, nil
	}

	theirs, err := tx.Matches.GetByMatchedProduct(ctx, best.ProductID)
	if err != nil {
		return nil, err
	}
	if theirs != nil {
		if err := tx.Matches.Create(ctx, &model.ProductMatch{
			MasterProductID:  theirs.MasterProductID,
			MatchedProductID: productID,
			SimilarityScore:  best.Score,
		}); err != nil {
			return nil, err
		}
		return &MatchResult{ProductID: productID, Action: MatchJoined, MasterProductID: theirs.MasterProductID, CandidateID: best.ProductID, Score: best.Score}, nil
	}

	// 代表商品自身也是成员，分数为 1
	if err := tx.Matches.Create(ctx, &model.ProductMatch{
		MasterProductID:  best.ProductID,
		MatchedProductID: best.ProductID,
		SimilarityScore:  1,
	}); err != nil {
		return nil, err
	}
	if err := tx.Matches.Create(ctx, &model.ProductMatch{
		MasterProductID:  best.ProductID,
		MatchedProductID: productID,
		SimilarityScore:  best.Score,
	}); err != nil {
		return nil, err
	}
	return &MatchResult{ProductID: productID, Action: MatchCreated, MasterProductID: best.ProductID, CandidateID: best.ProductID, Score: best.Score}, nil
}

// Handle 队列消费入口：商品已删除时直接确认，其余错误交给队列重试
func (s *MatcherService) Handle(ctx context.Context, productID uint64) error {
	_, err := s.MatchProduct(ctx, productID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.WithField("product_id", productID).Warn("匹配时商品已不存在，跳过")
		return nil
	}
	if errors.Is(err, model.ErrMatchingDegraded) {
		s.logger.WithError(err).WithField("product_id", productID).Warn("相似度查询不可用，商品暂不聚类")
	}
	return err
}

// ClusterDetail 聚类成员明细
type ClusterDetail struct {
	MasterProductID uint64           `json:"masterProductId"`
	Members         []*ClusterMember `json:"members"`
}

// ClusterMember 聚类成员
type ClusterMember struct {
	Product         *model.Product `json:"product"`
	SimilarityScore float64        `json:"similarityScore"`
}

// Clusters 聚类分页列表，按成员数降序
func (s *MatcherService) Clusters(ctx context.Context, limit, offset int) (*Page[*model.Cluster], error) {
	limit, offset = s.pager.Clamp(limit, offset)
	list, total, err := s.store.Matches.ListClusters(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询聚类失败: %w", err)
	}
	return newPage(list, total, limit, offset), nil
}

// Cluster 单个聚类的成员
func (s *MatcherService) Cluster(ctx context.Context, masterProductID uint64) (*ClusterDetail, error) {
	members, err := s.store.Matches.ListMembers(ctx, masterProductID)
	if err != nil {
		return nil, fmt.Errorf("查询聚类成员失败: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("聚类 %d: %w", masterProductID, model.ErrNotFound)
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.MatchedProductID)
	}
	products, err := s.store.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询聚类商品失败: %w", err)
	}
	byID := make(map[uint64]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	detail := &ClusterDetail{MasterProductID: masterProductID, Members: make([]*ClusterMember, 0, len(members))}
	for _, m := range members {
		if p, ok := byID[m.MatchedProductID]; ok {
			detail.Members = append(detail.Members, &ClusterMember{Product: p, SimilarityScore: m.SimilarityScore})
		}
	}
	return detail, nil
}
