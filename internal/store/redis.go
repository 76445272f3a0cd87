package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV はRedisをバックエンドとするKV実装。
// GET/SETによるキー単位の全置換で、ブラウザ共有ストアと同じ原子性モデルを持つ。
type RedisKV struct {
	client *redis.Client
}

// RedisConfig はRedis接続の設定を保持する。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient はRedisクライアントを生成する。
// 接続確認は行わないため、起動時にPingで疎通を検証すること。
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisKV はRedisKVの新しいインスタンスを生成する。
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get は指定キーの値を取得する。キーが存在しない場合はok=falseを返す。
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return val, true, nil
}

// Set は指定キーの値を全置換で書き込む。有効期限は設定しない。
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
