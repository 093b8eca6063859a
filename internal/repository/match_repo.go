package repository

import (
	"context"

	"PriceSync/internal/model"

	"gorm.io/gorm"
)

// MatchRepository 聚类成员仓储
type MatchRepository interface {
	GetByMatchedProduct(ctx context.Context, productID uint64) (*model.ProductMatch, error)
	// GetByMatchedProducts 批量查询成员关系，key 为 matched_product_id
	GetByMatchedProducts(ctx context.Context, productIDs []uint64) (map[uint64]*model.ProductMatch, error)
	Create(ctx context.Context, m *model.ProductMatch) error
	ListMembers(ctx context.Context, masterProductID uint64) ([]*model.ProductMatch, error)
	ListClusters(ctx context.Context, limit, offset int) ([]*model.Cluster, int64, error)
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) GetByMatchedProduct(ctx context.Context, productID uint64) (*model.ProductMatch, error) {
	return firstOrNil[model.ProductMatch](r.db.WithContext(ctx).Where("matched_product_id = ?", productID))
}

func (r *matchRepository) GetByMatchedProducts(ctx context.Context, productIDs []uint64) (map[uint64]*model.ProductMatch, error) {
	out := make(map[uint64]*model.ProductMatch, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var list []*model.ProductMatch
	if err := r.db.WithContext(ctx).Where("matched_product_id IN ?", productIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, m := range list {
		out[m.MatchedProductID] = m
	}
	return out, nil
}

func (r *matchRepository) Create(ctx context.Context, m *model.ProductMatch) error {
	return translate(r.db.WithContext(ctx).Create(m).Error, "product_match")
}

func (r *matchRepository) ListMembers(ctx context.Context, masterProductID uint64) ([]*model.ProductMatch, error) {
	var list []*model.ProductMatch
	if err := r.db.WithContext(ctx).
		Where("master_product_id = ?", masterProductID).
		Order("similarity_score DESC, matched_product_id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *matchRepository) ListClusters(ctx context.Context, limit, offset int) ([]*model.Cluster, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.ProductMatch{}).
		Distinct("master_product_id").
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Cluster
	if err := r.db.WithContext(ctx).Table("product_matches AS pm").
		Select("pm.master_product_id, p.name, COUNT(*) AS members").
		Joins("JOIN products p ON p.id = pm.master_product_id").
		Group("pm.master_product_id, p.name").
		Order("members DESC, pm.master_product_id ASC").
		Offset(offset).Limit(limit).
		Scan(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
