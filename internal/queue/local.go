package queue

import (
	"context"
	"sync"
	"time"

	"PriceSync/internal/interfaces"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// LocalDispatcher 进程内 worker 池，失败按指数退避重试
type LocalDispatcher struct {
	handler interfaces.MatchHandler
	logger  *logrus.Logger
	tasks   chan uint64
	workers int
	retries int
	base    time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewLocalDispatcher(handler interfaces.MatchHandler, logger *logrus.Logger, workers, buffer, retries int) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	if retries < 0 {
		retries = 0
	}
	return &LocalDispatcher{
		handler: handler,
		logger:  logger,
		tasks:   make(chan uint64, buffer),
		workers: workers,
		retries: retries,
		base:    100 * time.Millisecond,
	}
}

// Start 启动 worker，ctx 传给每次匹配
func (d *LocalDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			for productID := range d.tasks {
				d.process(ctx, id, productID)
			}
		}(i)
	}
	d.logger.WithField("workers", d.workers).Info("匹配 worker 已启动")
}

// Dispatch 缓冲区满时阻塞直到 ctx 取消
func (d *LocalDispatcher) Dispatch(ctx context.Context, productID uint64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.tasks <- productID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 停止接收任务，等待已入队任务处理完
func (d *LocalDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *LocalDispatcher) process(ctx context.Context, worker int, productID uint64) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.base
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, d.handler(ctx, productID)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(d.retries+1)))
	if err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"worker":     worker,
			"product_id": productID,
		}).Warn("匹配任务重试后仍失败，商品暂不聚类")
	}
}
