package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// channelPrefix はRedis pub/subチャネル名のプレフィックス。
const channelPrefix = "taskdash:change:"

// RedisNotifier はRedis pub/subをバックエンドとするNotifier実装。
// プロセスをまたいでマウントされたパネル間の同期に使用する（ブラウザの
// クロスタブブロードキャストに相当）。Redisは全購読者に配信するため、
// 自己配信の抑止は受信側でのorigin照合により行う。
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier はRedisNotifierの新しいインスタンスを生成する。
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger,
	}
}

// channelName は指定ストアキーのpub/subチャネル名を返す。
func channelName(key string) string {
	return channelPrefix + key
}

// Broadcast はエンベロープをシリアライズして指定キーのチャネルへ発行する。
func (n *RedisNotifier) Broadcast(ctx context.Context, origin, key string, newValue []byte) error {
	env := Envelope{
		Origin:   origin,
		Key:      key,
		NewValue: newValue,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := n.client.Publish(ctx, channelName(key), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change for key %q: %w", key, err)
	}
	return nil
}

// Subscribe は指定キーのチャネルを購読し、受信goroutineを起動する。
// 発行元が自分自身のメッセージと解析不能なメッセージは読み捨てる。
func (n *RedisNotifier) Subscribe(key string, handler Handler) (*Subscription, error) {
	id := uuid.NewString()

	pubsub := n.client.Subscribe(context.Background(), channelName(key))

	// Receiveで購読確立を待つ。確立前のBroadcastは取りこぼすが、
	// 配信モデルはfire-and-forgetなので購読開始前の変更は次のロードで拾う。
	if _, err := pubsub.Receive(context.Background()); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to key %q: %w", key, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				n.logger.Warn("malformed change broadcast discarded",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				continue
			}
			if env.Origin == id {
				continue
			}
			handler(env)
		}
	}()

	return &Subscription{
		ID: id,
		stop: func() {
			if err := pubsub.Close(); err != nil {
				n.logger.Warn("failed to close subscription",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		},
	}, nil
}
