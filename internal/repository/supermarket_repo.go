package repository

import (
	"context"

	"PriceSync/internal/model"

	"gorm.io/gorm"
)

// SupermarketRepository 超市仓储
type SupermarketRepository interface {
	Create(ctx context.Context, s *model.Supermarket) error
	Save(ctx context.Context, s *model.Supermarket) error
	GetByID(ctx context.Context, id uint64) (*model.Supermarket, error)
	GetBySlug(ctx context.Context, slug string) (*model.Supermarket, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Supermarket, error)
	ListByChainGroup(ctx context.Context, group string) ([]*model.Supermarket, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

type supermarketRepository struct {
	db *gorm.DB
}

func NewSupermarketRepository(db *gorm.DB) SupermarketRepository {
	return &supermarketRepository{db: db}
}

func (r *supermarketRepository) Create(ctx context.Context, s *model.Supermarket) error {
	return translate(r.db.WithContext(ctx).Create(s).Error, "supermarket")
}

func (r *supermarketRepository) Save(ctx context.Context, s *model.Supermarket) error {
	return translate(r.db.WithContext(ctx).Save(s).Error, "supermarket")
}

func (r *supermarketRepository) GetByID(ctx context.Context, id uint64) (*model.Supermarket, error) {
	return firstOrNil[model.Supermarket](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *supermarketRepository) GetBySlug(ctx context.Context, slug string) (*model.Supermarket, error) {
	return firstOrNil[model.Supermarket](r.db.WithContext(ctx).Where("slug = ?", slug))
}

func (r *supermarketRepository) List(ctx context.Context, activeOnly bool) ([]*model.Supermarket, error) {
	var list []*model.Supermarket
	q := r.db.WithContext(ctx).Model(&model.Supermarket{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *supermarketRepository) ListByChainGroup(ctx context.Context, group string) ([]*model.Supermarket, error) {
	var list []*model.Supermarket
	if err := r.db.WithContext(ctx).
		Where("chain_group = ? AND is_active = ?", group, true).
		Order("name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *supermarketRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Supermarket{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
