package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceSync/internal/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisDispatcher 基于 Redis Streams 的匹配任务队列，支持多实例消费与死信队列
type RedisDispatcher struct {
	rdb          *redis.Client
	handler      interfaces.MatchHandler
	logger       *logrus.Logger
	stream       string
	group        string
	consumerID   string
	deadLetter   string
	blockTime    time.Duration
	batchSize    int64
	pendingIdle  time.Duration
	pendingStart string
	maxRetry     int
}

// Option 队列配置选项
type Option func(*RedisDispatcher)

// WithBlockTime 设置阻塞等待时间
func WithBlockTime(d time.Duration) Option {
	return func(q *RedisDispatcher) { q.blockTime = d }
}

// WithBatchSize 设置每次读取的消息数量
func WithBatchSize(n int64) Option {
	return func(q *RedisDispatcher) { q.batchSize = n }
}

// WithPendingIdle 设置认领 Pending 消息的最小空闲时间
func WithPendingIdle(d time.Duration) Option {
	return func(q *RedisDispatcher) { q.pendingIdle = d }
}

// WithMaxRetry 设置最大重试次数，超过后进入死信队列
func WithMaxRetry(n int) Option {
	return func(q *RedisDispatcher) { q.maxRetry = n }
}

// WithConsumerID 设置消费者标识
func WithConsumerID(id string) Option {
	return func(q *RedisDispatcher) { q.consumerID = id }
}

// NewRedisDispatcher 创建队列并确保消费组存在
func NewRedisDispatcher(ctx context.Context, rdb *redis.Client, handler interfaces.MatchHandler, logger *logrus.Logger, stream, group string, opts ...Option) (*RedisDispatcher, error) {
	if stream == "" {
		stream = "pricesync:match"
	}
	if group == "" {
		return nil, fmt.Errorf("消费组名称不能为空")
	}
	q := &RedisDispatcher{
		rdb:          rdb,
		handler:      handler,
		logger:       logger,
		stream:       stream,
		group:        group,
		consumerID:   "matcher-" + uuid.NewString()[:8],
		deadLetter:   stream + ":dlq",
		blockTime:    time.Second,
		batchSize:    10,
		pendingIdle:  time.Minute,
		pendingStart: "0-0",
		maxRetry:     5,
	}
	for _, opt := range opts {
		opt(q)
	}

	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("创建消费组失败: %w", err)
	}
	logger.WithFields(logrus.Fields{"stream": stream, "group": group, "consumer": q.consumerID}).Info("匹配队列已就绪")
	return q, nil
}

// Dispatch 投递匹配任务
func (q *RedisDispatcher) Dispatch(ctx context.Context, productID uint64) error {
	return q.publish(ctx, &MatchTask{ProductID: productID, EnqueuedAt: time.Now().UTC()})
}

func (q *RedisDispatcher) publish(ctx context.Context, task *MatchTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}
	if err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("投递任务失败: %w", err)
	}
	return nil
}

// Run 持续消费直到 ctx 取消
func (q *RedisDispatcher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := q.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.WithError(err).Warn("读取匹配队列失败")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOnce 读取一批消息（优先认领超时未确认的）并处理，返回处理条数
func (q *RedisDispatcher) ProcessOnce(ctx context.Context) (int, error) {
	msgs, err := q.readPending(ctx)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		if msgs, err = q.readNew(ctx); err != nil {
			return 0, err
		}
	}
	for _, m := range msgs {
		q.handle(ctx, m)
	}
	return len(msgs), nil
}

func (q *RedisDispatcher) readPending(ctx context.Context) ([]redis.XMessage, error) {
	msgs, next, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumerID,
		MinIdle:  q.pendingIdle,
		Start:    q.pendingStart,
		Count:    q.batchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xautoclaim failed: %w", err)
	}
	if next != "" {
		q.pendingStart = next
	}
	return msgs, nil
}

func (q *RedisDispatcher) readNew(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumerID,
		Streams:  []string{q.stream, ">"},
		Count:    q.batchSize,
		Block:    q.blockTime,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}
	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

func (q *RedisDispatcher) handle(ctx context.Context, msg redis.XMessage) {
	data, _ := msg.Values["data"].(string)
	task, err := parseTask(data)
	if err != nil {
		q.logger.WithError(err).WithField("msg_id", msg.ID).Warn("无效的匹配任务，转入死信队列")
		q.deadLetterAndAck(ctx, msg.ID, data, err)
		return
	}

	if err := q.handler(ctx, task.ProductID); err != nil {
		q.handleFailure(ctx, msg.ID, task, err)
		return
	}
	q.ack(ctx, msg.ID)
}

// handleFailure 未超过重试次数时重新投递，否则进入死信队列
func (q *RedisDispatcher) handleFailure(ctx context.Context, msgID string, task *MatchTask, cause error) {
	task.Retry++
	fields := logrus.Fields{"msg_id": msgID, "product_id": task.ProductID, "retry": task.Retry}
	if task.Retry > q.maxRetry {
		q.logger.WithError(cause).WithFields(fields).Warn("匹配任务超过最大重试次数，转入死信队列")
		raw, _ := json.Marshal(task)
		q.deadLetterAndAck(ctx, msgID, string(raw), cause)
		return
	}
	if err := q.publish(ctx, task); err != nil {
		// 不确认，等待 XAUTOCLAIM 重新认领
		q.logger.WithError(err).WithFields(fields).Warn("重新投递匹配任务失败")
		return
	}
	q.logger.WithError(cause).WithFields(fields).Info("匹配任务失败，已重新投递")
	q.ack(ctx, msgID)
}

func (q *RedisDispatcher) deadLetterAndAck(ctx context.Context, msgID, payload string, cause error) {
	if err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.deadLetter,
		Values: map[string]interface{}{
			"original_id": msgID,
			"payload":     payload,
			"reason":      cause.Error(),
			"failed_at":   time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err(); err != nil {
		q.logger.WithError(err).WithField("msg_id", msgID).Error("写入死信队列失败")
		return
	}
	q.ack(ctx, msgID)
}

func (q *RedisDispatcher) ack(ctx context.Context, msgID string) {
	if err := q.rdb.XAck(ctx, q.stream, q.group, msgID).Err(); err != nil {
		q.logger.WithError(err).WithField("msg_id", msgID).Warn("确认消息失败")
	}
}

// Pending 已读取未确认的消息数量
func (q *RedisDispatcher) Pending(ctx context.Context) (int64, error) {
	info, err := q.rdb.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending failed: %w", err)
	}
	return info.Count, nil
}

// DeadLetterStream 死信 stream 名称
func (q *RedisDispatcher) DeadLetterStream() string { return q.deadLetter }
