package service

import (
	"context"
	"time"

	"PriceSync/internal/config"
	"PriceSync/internal/model"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
)

// Pager 分页参数裁剪
type Pager struct {
	DefaultLimit int
	MaxLimit     int
	HistoryLimit int
}

func NewPager(cfg config.PaginationConfig) Pager {
	p := Pager{DefaultLimit: cfg.DefaultLimit, MaxLimit: cfg.MaxLimit, HistoryLimit: cfg.HistoryLimit}
	if p.MaxLimit <= 0 {
		p.MaxLimit = 100
	}
	if p.DefaultLimit <= 0 || p.DefaultLimit > p.MaxLimit {
		p.DefaultLimit = 20
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 30
	}
	return p
}

// Clamp limit 限制在 [1, max]，未传时取默认值
func (p Pager) Clamp(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page 分页结果
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

func newPage[T any](items []T, total int64, limit, offset int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	}
}

// conflictRetry 并发冲突时指数退避重试，其他错误立即返回
type conflictRetry struct {
	retries int
	base    time.Duration
}

func newConflictRetry(cfg config.IngestConfig) conflictRetry {
	r := conflictRetry{retries: cfg.ConflictRetries, base: cfg.BackoffBase}
	if r.retries < 0 {
		r.retries = 0
	}
	if r.base <= 0 {
		r.base = 50 * time.Millisecond
	}
	return r
}

func (r conflictRetry) do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.base
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if model.IsConflict(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(r.retries+1)))
	return err
}

var hundred = decimal.NewFromInt(100)

// round2 四舍五入保留两位小数
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nullRound2(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(round2(d.Decimal))
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
