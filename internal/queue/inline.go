package queue

import (
	"context"

	"PriceSync/internal/interfaces"
)

// InlineDispatcher 在调用方 goroutine 内直接执行匹配（matching.async=false）
type InlineDispatcher struct {
	handler interfaces.MatchHandler
}

func NewInlineDispatcher(handler interfaces.MatchHandler) *InlineDispatcher {
	return &InlineDispatcher{handler: handler}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, productID uint64) error {
	return d.handler(ctx, productID)
}
