package repository

import (
	"context"
	"errors"
	"fmt"

	"PriceSync/internal/model"

	"gorm.io/gorm"
)

// Store 聚合各仓储，InTx 内的仓储共享同一事务
type Store struct {
	db           *gorm.DB
	Supermarkets SupermarketRepository
	Products     ProductRepository
	Prices       PriceRepository
	Matches      MatchRepository
	Runs         ScrapeRunRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Supermarkets: NewSupermarketRepository(db),
		Products:     NewProductRepository(db),
		Prices:       NewPriceRepository(db),
		Matches:      NewMatchRepository(db),
		Runs:         NewScrapeRunRepository(db),
	}
}

// DB 底层连接
func (s *Store) DB() *gorm.DB { return s.db }

// InTx 在事务内执行 fn，fn 返回错误或 panic 时回滚
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewStore(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", translate(err, "transaction"))
	}
	return nil
}

// AutoMigrate 建表及索引（含 prices 当前价部分唯一索引）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("自动迁移失败: %w", err)
	}
	return nil
}

// translate 唯一约束冲突转为可重试的 ConflictError
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &model.ConflictError{Entity: entity, Err: err}
	}
	return err
}

// firstOrNil 未找到时返回 (nil, nil)
func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
