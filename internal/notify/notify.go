// Package notify はストア変更のクロスインスタンス通知を提供する。
//
// マネージャがストアを書き換えた後、同じキーを購読する他のマウント済み
// インスタンスへ新しいコレクション全体を配信する。発行元のマネージャは
// 自身のブロードキャストを受信しない（ローカルプロジェクションは書き込み時に
// 同期済みのため。再受信するとフィードバックループの温床になる）。
//
// 配信モデルはat-least-once、fire-and-forget。到達確認や再送は行わず、
// 順序保証は発行順のみで、最後に観測された書き込みが勝つ。
package notify

import (
	"context"
	"encoding/json"
)

// Envelope は変更ブロードキャストのペイロード。
// NewValueは置換後のコレクション全体のシリアライズ結果であり、
// 受信側はこれを新しい全量状態として扱う。
type Envelope struct {
	Origin   string          `json:"origin"`
	Key      string          `json:"key"`
	NewValue json.RawMessage `json:"newValue"`
}

// Handler はブロードキャスト受信時に呼び出される関数。
type Handler func(env Envelope)

// Notifier は変更通知の境界ポート。
type Notifier interface {
	// Broadcast は指定キーの新しいコレクション全体を他の購読者へ配信する。
	// originには発行元サブスクリプションのIDを渡す。
	Broadcast(ctx context.Context, origin, key string, newValue []byte) error

	// Subscribe は指定キーの購読を開始する。
	// 購読解除はパネルのアンマウントに対応し、以後の配信を止める。
	Subscribe(key string, handler Handler) (*Subscription, error)
}

// Subscription は購読のライフサイクルを表す。
// IDは発行元識別に使用され、同一IDを起源とするブロードキャストは配信されない。
type Subscription struct {
	ID   string
	stop func()
}

// Unsubscribe は購読を解除する。複数回呼んでも安全。
func (s *Subscription) Unsubscribe() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
