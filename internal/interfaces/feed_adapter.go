package interfaces

import (
	"context"

	"PriceSync/internal/model"
)

// FeedAdapter 超市数据源适配器的接口
type FeedAdapter interface {
	// GetName 数据源名称
	GetName() string
	// FetchProducts 拉取商品记录
	FetchProducts(ctx context.Context) ([]*model.ScrapedProduct, error)
}
