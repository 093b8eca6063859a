package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"
	"PriceSync/internal/utils/textnorm"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 搜索时相似度下限（另有子串命中）
const searchThreshold = 0.3

// CatalogService 商品目录：身份、合并、相似度查询
type CatalogService struct {
	store         *repository.Store
	logger        *logrus.Logger
	threshold     float64
	maxCandidates int
	pager         Pager
	retry         conflictRetry
}

func NewCatalogService(store *repository.Store, logger *logrus.Logger, cfg *config.Config) *CatalogService {
	s := &CatalogService{
		store:         store,
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

// Upsert 按身份查找商品，存在则合并属性，不存在则创建；返回是否新建
func (s *CatalogService) Upsert(ctx context.Context, supermarketID uint64, externalID *string, attrs model.ProductAttributes) (*model.Product, bool, error) {
	var (
		product *model.Product
		created bool
	)
	err := s.retry.do(ctx, func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			var err error
			product, created, err = s.upsertIn(ctx, tx, supermarketID, externalID, attrs)
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	return product, created, nil
}

// upsertIn 在给定事务内执行 upsert，命中的商品行加锁直到事务结束
func (s *CatalogService) upsertIn(ctx context.Context, tx *repository.Store, supermarketID uint64, externalID *string, attrs model.ProductAttributes) (*model.Product, bool, error) {
	name := ""
	if attrs.Name != nil {
		name = strings.TrimSpace(*attrs.Name)
	}
	existing, err := tx.Products.FindByIdentity(ctx, supermarketID, externalID, name, true)
	if err != nil {
		return nil, false, fmt.Errorf("查询商品失败: %w", err)
	}

	if existing == nil {
		if name == "" {
			return nil, false, &model.ValidationError{Fields: []model.FieldError{{Field: "name", Message: "must not be empty"}}}
		}
		p := &model.Product{SupermarketID: supermarketID, ExternalID: externalID, IsAvailable: true}
		merged := MergeProduct(*p, attrs, attrs.Presence())
		merged.LastScrapedAt = orNow(attrs.ScrapedAt)
		if err := tx.Products.Create(ctx, &merged); err != nil {
			return nil, false, fmt.Errorf("创建商品失败: %w", err)
		}
		return &merged, true, nil
	}

	merged := MergeProduct(*existing, attrs, attrs.Presence())
	merged.LastScrapedAt = orNow(attrs.ScrapedAt)
	if err := tx.Products.Save(ctx, &merged); err != nil {
		return nil, false, fmt.Errorf("更新商品失败: %w", err)
	}
	return &merged, false, nil
}

// MergeProduct 仅覆盖本次出现的字段，其余保留原值；名称变化时重算规范化名称
func MergeProduct(existing model.Product, attrs model.ProductAttributes, present model.FieldSet) model.Product {
	out := existing
	if present[model.FieldName] && attrs.Name != nil {
		out.Name = strings.TrimSpace(*attrs.Name)
	}
	if present[model.FieldDescription] {
		out.Description = attrs.Description
	}
	if present[model.FieldBrand] {
		out.Brand = attrs.Brand
	}
	if present[model.FieldCategory] {
		out.Category = attrs.Category
	}
	if present[model.FieldSubcategory] {
		out.Subcategory = attrs.Subcategory
	}
	if present[model.FieldUnit] {
		out.Unit = attrs.Unit
	}
	if present[model.FieldUnitSize] {
		out.UnitSize = attrs.UnitSize
	}
	if present[model.FieldImageURL] {
		out.ImageURL = attrs.ImageURL
	}
	if present[model.FieldImages] {
		if raw, err := json.Marshal(attrs.Images); err == nil {
			out.Images = datatypes.JSON(raw)
		}
	}
	if present[model.FieldProductURL] {
		out.ProductURL = attrs.ProductURL
	}
	if present[model.FieldBarcode] {
		out.Barcode = attrs.Barcode
	}
	if present[model.FieldAvailable] && attrs.IsAvailable != nil {
		out.IsAvailable = *attrs.IsAvailable
	}
	if out.NormalizedName == "" || out.Name != existing.Name {
		out.NormalizedName = textnorm.Normalize(out.Name)
	}
	return out
}

// similarQuery 相似度查询条件
type similarQuery struct {
	name                 string
	category             *string
	excludeProductID     uint64
	excludeSupermarketID uint64
	threshold            float64
	limit                int
}

// FindSimilarWithinCategory 同品类相似商品，按相似度降序，相同分数按 id 升序
func (s *CatalogService) FindSimilarWithinCategory(ctx context.Context, normalizedName string, category *string, threshold float64) ([]model.SimilarProduct, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	return s.findSimilar(ctx, similarQuery{
		name:      normalizedName,
		category:  category,
		threshold: threshold,
		limit:     s.maxCandidates,
	})
}

func (s *CatalogService) findSimilar(ctx context.Context, q similarQuery) ([]model.SimilarProduct, error) {
	candidates, err := s.store.Products.ListByCategory(ctx, q.category, q.excludeProductID, q.excludeSupermarketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMatchingDegraded, err)
	}
	hits := make([]model.SimilarProduct, 0)
	for _, c := range candidates {
		score := textnorm.Similarity(q.name, c.NormalizedName)
		if score < q.threshold {
			continue
		}
		hits = append(hits, model.SimilarProduct{
			ProductID:      c.ID,
			SupermarketID:  c.SupermarketID,
			Name:           c.Name,
			NormalizedName: c.NormalizedName,
			Score:          score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ProductID < hits[j].ProductID
	})
	if q.limit > 0 && len(hits) > q.limit {
		hits = hits[:q.limit]
	}
	return hits, nil
}

// SearchHit 搜索结果
type SearchHit struct {
	*model.Product
	Score        float64      `json:"score"`
	CurrentPrice *model.Price `json:"currentPrice,omitempty"`
}

// Search 规范化名称相似或包含搜索词，按相似度排序
func (s *CatalogService) Search(ctx context.Context, term string, supermarketID uint64, limit, offset int) (*Page[*SearchHit], error) {
	limit, offset = s.pager.Clamp(limit, offset)
	norm := textnorm.Normalize(term)
	if norm == "" {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "q", Message: "search term must not be empty"}}}
	}

	candidates, err := s.store.Products.SearchCandidates(ctx, textnorm.SearchGrams(norm), supermarketID)
	if err != nil {
		return nil, fmt.Errorf("搜索商品失败: %w", err)
	}
	hits := make([]*SearchHit, 0)
	for _, c := range candidates {
		score := textnorm.Similarity(norm, c.NormalizedName)
		if score >= searchThreshold || strings.Contains(c.NormalizedName, norm) {
			hits = append(hits, &SearchHit{Product: c, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	total := int64(len(hits))
	if offset >= len(hits) {
		hits = hits[:0]
	} else {
		end := offset + limit
		if end > len(hits) {
			end = len(hits)
		}
		hits = hits[offset:end]
	}

	ids := make([]uint64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	prices, err := s.store.Prices.GetCurrentByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询当前价格失败: %w", err)
	}
	for _, h := range hits {
		h.CurrentPrice = prices[h.ID]
	}
	return newPage(hits, total, limit, offset), nil
}

// List 商品分页列表，附带当前价格
func (s *CatalogService) List(ctx context.Context, filter repository.ProductFilter, limit, offset int) (*Page[*model.ProductWithPrice], error) {
	limit, offset = s.pager.Clamp(limit, offset)
	products, total, err := s.store.Products.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询商品列表失败: %w", err)
	}
	ids := make([]uint64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	prices, err := s.store.Prices.GetCurrentByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询当前价格失败: %w", err)
	}
	items := make([]*model.ProductWithPrice, 0, len(products))
	for _, p := range products {
		items = append(items, &model.ProductWithPrice{Product: *p, CurrentPrice: prices[p.ID]})
	}
	return newPage(items, total, limit, offset), nil
}

// Get 商品详情，含超市与当前价格
func (s *CatalogService) Get(ctx context.Context, id uint64) (*model.ProductWithPrice, error) {
	p, err := s.store.Products.GetByID(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("商品 %d: %w", id, model.ErrNotFound)
	}
	sm, err := s.store.Supermarkets.GetByID(ctx, p.SupermarketID)
	if err != nil {
		return nil, fmt.Errorf("查询超市失败: %w", err)
	}
	price, err := s.store.Prices.GetCurrent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询当前价格失败: %w", err)
	}
	return &model.ProductWithPrice{Product: *p, Supermarket: sm, CurrentPrice: price}, nil
}

// Delete 删除商品及其价格、历史与聚类关系
func (s *CatalogService) Delete(ctx context.Context, id uint64) error {
	var deleted bool
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		deleted, err = tx.Products.DeleteCascade(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("删除商品失败 %d: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("商品 %d: %w", id, model.ErrNotFound)
	}
	s.logger.WithField("product_id", id).Info("已删除商品")
	return nil
}
