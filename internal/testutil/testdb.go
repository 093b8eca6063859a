// Package testutil 测试用内存数据库与样例数据
package testutil

import (
	"context"
	"io"
	"testing"

	"PriceSync/internal/model"
	"PriceSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试独立的 sqlite 内存库，已完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite 单写者，串行化连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

// NewStore 返回基于内存库的 Store
func NewStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

// NewLogger 静默日志
func NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SeedSupermarket 创建启用状态的超市
func SeedSupermarket(t *testing.T, store *repository.Store, name, slug string) *model.Supermarket {
	t.Helper()
	s := &model.Supermarket{Name: name, Slug: slug, Location: model.DefaultLocation, IsActive: true}
	require.NoError(t, store.Supermarkets.Create(context.Background(), s))
	return s
}

// Ptr 取地址
func Ptr[T any](v T) *T { return &v }
