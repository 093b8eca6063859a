// Package queue 匹配任务的投递与消费：同步、进程内 worker 池、Redis Streams
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("queue closed")

// MatchTask 匹配任务消息
type MatchTask struct {
	ProductID  uint64    `json:"product_id"`
	Retry      int       `json:"retry"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func parseTask(data string) (*MatchTask, error) {
	var t MatchTask
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("解析任务失败: %w", err)
	}
	if t.ProductID == 0 {
		return nil, fmt.Errorf("任务缺少 product_id")
	}
	return &t, nil
}
