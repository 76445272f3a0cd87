package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKV はPostgreSQLをバックエンドとするKV実装。
// kv_collectionsテーブルの1行を1キーに対応させ、UPSERTによる全置換を行う。
// 行単位の置換なので部分更新による不整合な読み取りは発生しない。
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV はPostgresKVの新しいインスタンスを生成する。
func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

// Get は指定キーの値を取得する。キーが存在しない場合はok=falseを返す。
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM kv_collections WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, true, nil
}

// Set は指定キーの値を全置換で書き込む。
func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO kv_collections (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
