package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 通知事件类型
const (
	EventOrderCreated  = "order_created"
	EventOrderStatus   = "order_status"
	EventRewardGranted = "reward_granted"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// Notification 订单与积分事件，事务提交后入队
type Notification struct {
	Event           string `json:"event"`
	ClientID        int64  `json:"client_id"`
	OrderID         int64  `json:"order_id"`
	Reference       string `json:"reference"`
	Status          string `json:"status,omitempty"`
	FinalPrice      int64  `json:"final_price,omitempty"`
	FreeRunsGranted int    `json:"free_runs_granted,omitempty"`
	Message         string `json:"message,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将通知加入队列
func (q *Queue) Push(ctx context.Context, msg *Notification) error {
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取通知（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Notification, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg Notification
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
