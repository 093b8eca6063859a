package repository

import (
	"context"

	"PriceSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 商品仓储
type ProductRepository interface {
	// FindByIdentity 按 (超市, external_id) 查找，externalID 为空时按 (超市, 名称)；lock 为 true 时加行锁
	FindByIdentity(ctx context.Context, supermarketID uint64, externalID *string, name string, lock bool) (*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Save(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64, lock bool) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]*model.Product, error)
	List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*model.Product, int64, error)
	// ListByCategory 同品类候选，排除指定商品及超市（0 表示不排除）；category 为 nil 时无候选
	ListByCategory(ctx context.Context, category *string, excludeProductID, excludeSupermarketID uint64) ([]*model.Product, error)
	// SearchCandidates 规范化名称包含任一片段的商品，排序与截断由调用方在打分后完成
	SearchCandidates(ctx context.Context, grams []string, supermarketID uint64) ([]*model.Product, error)
	// DeleteCascade 删除商品及其价格、历史、聚类成员关系
	DeleteCascade(ctx context.Context, id uint64) (bool, error)
}

// ProductFilter 商品列表筛选
type ProductFilter struct {
	SupermarketID uint64
	Category      string
	Brand         string
	AvailableOnly bool
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByIdentity(ctx context.Context, supermarketID uint64, externalID *string, name string, lock bool) (*model.Product, error) {
	q := r.db.WithContext(ctx).Where("supermarket_id = ?", supermarketID)
	if externalID != nil {
		q = q.Where("external_id = ?", *externalID)
	} else {
		q = q.Where("external_id IS NULL AND name = ?", name)
	}
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return firstOrNil[model.Product](q)
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "product")
}

func (r *productRepository) Save(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Save(p).Error, "product")
}

func (r *productRepository) GetByID(ctx context.Context, id uint64, lock bool) (*model.Product, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return firstOrNil[model.Product](q)
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uint64) ([]*model.Product, error) {
	var list []*model.Product
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*model.Product, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Product{})
		if filter.SupermarketID != 0 {
			q = q.Where("supermarket_id = ?", filter.SupermarketID)
		}
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.Brand != "" {
			q = q.Where("brand = ?", filter.Brand)
		}
		if filter.AvailableOnly {
			q = q.Where("is_available = ?", true)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Product
	if err := base().Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *productRepository) ListByCategory(ctx context.Context, category *string, excludeProductID, excludeSupermarketID uint64) ([]*model.Product, error) {
	var list []*model.Product
	// 无品类的商品不与任何商品同品类
	if category == nil {
		return list, nil
	}
	q := r.db.WithContext(ctx).
		Select("id", "supermarket_id", "name", "normalized_name", "category").
		Where("category = ?", *category)
	if excludeProductID != 0 {
		q = q.Where("id <> ?", excludeProductID)
	}
	if excludeSupermarketID != 0 {
		q = q.Where("supermarket_id <> ?", excludeSupermarketID)
	}
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepository) SearchCandidates(ctx context.Context, grams []string, supermarketID uint64) ([]*model.Product, error) {
	var list []*model.Product
	if len(grams) == 0 {
		return list, nil
	}
	cond := r.db.Session(&gorm.Session{NewDB: true}).Where("normalized_name LIKE ?", "%"+grams[0]+"%")
	for _, g := range grams[1:] {
		cond = cond.Or("normalized_name LIKE ?", "%"+g+"%")
	}
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where(cond)
	if supermarketID != 0 {
		q = q.Where("supermarket_id = ?", supermarketID)
	}
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepository) DeleteCascade(ctx context.Context, id uint64) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&model.PriceHistory{}).Error; err != nil {
		return false, err
	}
	if err := db.Where("product_id = ?", id).Delete(&model.Price{}).Error; err != nil {
		return false, err
	}
	// 作为代表商品时整个聚类解散，其余成员可重新匹配
	if err := db.Where("matched_product_id = ? OR master_product_id = ?", id, id).Delete(&model.ProductMatch{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
