package repository

import (
	"context"

	"PriceSync/internal/model"

	"gorm.io/gorm"
)

// ScrapeRunRepository 入库批次仓储
type ScrapeRunRepository interface {
	Create(ctx context.Context, run *model.ScrapeRun) error
	Save(ctx context.Context, run *model.ScrapeRun) error
	GetByUUID(ctx context.Context, runUUID string) (*model.ScrapeRun, error)
	ListBySupermarket(ctx context.Context, supermarketID uint64, limit int) ([]*model.ScrapeRun, error)
}

type scrapeRunRepository struct {
	db *gorm.DB
}

func NewScrapeRunRepository(db *gorm.DB) ScrapeRunRepository {
	return &scrapeRunRepository{db: db}
}

func (r *scrapeRunRepository) Create(ctx context.Context, run *model.ScrapeRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *scrapeRunRepository) Save(ctx context.Context, run *model.ScrapeRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *scrapeRunRepository) GetByUUID(ctx context.Context, runUUID string) (*model.ScrapeRun, error) {
	return firstOrNil[model.ScrapeRun](r.db.WithContext(ctx).Where("run_uuid = ?", runUUID))
}

func (r *scrapeRunRepository) ListBySupermarket(ctx context.Context, supermarketID uint64, limit int) ([]*model.ScrapeRun, error) {
	var list []*model.ScrapeRun
	if err := r.db.WithContext(ctx).
		Where("supermarket_id = ?", supermarketID).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
