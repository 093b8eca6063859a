package adapter

import (
	"context"
	"fmt"
	"os"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"

	"github.com/sirupsen/logrus"
)

// JSONFileAdapter 读取本地 JSON 文件（抓取器落盘结果）
type JSONFileAdapter struct {
	slug   string
	path   string
	logger *logrus.Logger
}

func NewJSONFileAdapter(slug string, cfg *config.FeedConfig, logger *logrus.Logger) (interfaces.FeedAdapter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%s: file 数据源缺少 path", slug)
	}
	return &JSONFileAdapter{slug: slug, path: cfg.Path, logger: logger}, nil
}

func (a *JSONFileAdapter) GetName() string { return "file:" + a.slug }

func (a *JSONFileAdapter) FetchProducts(ctx context.Context) ([]*model.ScrapedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败 %s: %w", a.path, err)
	}
	page, err := decodeFeed(body)
	if err != nil {
		return nil, err
	}
	items := toScraped(a.slug, page.Items, a.logger)
	a.logger.WithFields(logrus.Fields{"slug": a.slug, "path": a.path, "count": len(items)}).Info("读取数据文件完成")
	return items, nil
}
