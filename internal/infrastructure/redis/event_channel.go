package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ReservationEventsChannel は予約イベントを配信する Pub/Sub チャンネル
const ReservationEventsChannel = "reservation-events"

// EventChannel は Redis Pub/Sub へイベントを配信する
type EventChannel struct {
	client  *redis.Client
	channel string
}

// NewEventChannel は新しいEventChannelを作成する
func NewEventChannel(client *redis.Client, channel string) *EventChannel {
	if channel == "" {
		channel = ReservationEventsChannel
	}
	return &EventChannel{client: client, channel: channel}
}

// Broadcast はエンコード済みのイベントを配信する
func (c *EventChannel) Broadcast(ctx context.Context, payload []byte) error {
	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		return fmt.Errorf("イベント配信に失敗: %w", err)
	}
	return nil
}

// Subscribe はチャンネルを購読する（通知サービス等の下流向け）
func (c *EventChannel) Subscribe(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, c.channel)
}
