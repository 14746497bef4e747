package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
)

// DefaultChannel 默认频道
const DefaultChannel = "laundry:events"

// EventMessages 事件对应的默认提示
var EventMessages = map[string]string{
	queue.EventOrderCreated:  "订单已创建",
	queue.EventOrderStatus:   "订单状态已更新",
	queue.EventRewardGranted: "恭喜获得免费洗涤次数",
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish 发布通知，未填写提示时按事件补全
func (p *Publisher) Publish(ctx context.Context, msg *queue.Notification) error {
	if msg.Message == "" {
		msg.Message = EventMessages[msg.Event]
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅通知，阻塞到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*queue.Notification)) error {
	ps := s.client.Subscribe(ctx, s.channel)
	defer ps.Close()

	// 等待订阅确认，保证返回前发布的消息不会丢失
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", s.channel, err)
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var n queue.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				continue // 忽略解析错误
			}

			handler(&n)
		}
	}
}
