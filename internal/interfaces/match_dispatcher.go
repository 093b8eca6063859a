package interfaces

import "context"

// MatchHandler 处理单个商品的匹配任务
type MatchHandler func(ctx context.Context, productID uint64) error

// MatchDispatcher 入库提交后投递匹配任务
type MatchDispatcher interface {
	Dispatch(ctx context.Context, productID uint64) error
}
