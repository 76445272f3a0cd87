// Package store は共有キー/バリューストアの境界ポートと実装を提供する。
//
// ストアはTasksとUserLogsの2つの論理コレクションの唯一の永続化先であり、
// 値はコレクション全体をシリアライズしたJSONバイト列として保持される。
// 書き込みはキー単位の全置換であり、部分更新はサポートしない。
// 複数キーにまたがるトランザクション保証はない。
// 同一キーへの競合書き込みはラストライターウィンズとなる。
package store

import "context"

// コレクションを保持するストアキー。
const (
	// KeyTasks はタスクコレクションのストアキー。
	KeyTasks = "tasks"
	// KeyUserLogs はユーザーログコレクションのストアキー。
	KeyUserLogs = "userLogs"
)

// KV は永続化ストアの境界インターフェース。
// マネージャはシングルトンを直接参照せず、このポート経由でのみストアに触れる。
type KV interface {
	// Get は指定キーの値を取得する。キーが存在しない場合はok=falseを返す。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set は指定キーの値を全置換で書き込む。
	Set(ctx context.Context, key string, value []byte) error
}

// Pinger は疎通確認をサポートするストアバックエンドのインターフェース。
// ヘルスチェックエンドポイントから利用する。
type Pinger interface {
	Ping(ctx context.Context) error
}
