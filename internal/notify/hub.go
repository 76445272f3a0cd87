package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub はプロセス内のNotifier実装。
// 同一プロセスにマウントされた複数パネル間の同期に使用する。
// 配信はBroadcastの呼び出し内で同期的に行われるため、テストから決定的に
// 観測できる（プロセスをまたぐ非同期配信はRedisNotifierが担う）。
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]Handler // key -> subscription ID -> handler
}

// NewHub はHubの新しいインスタンスを生成する。
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]Handler),
	}
}

// Broadcast は指定キーの購読者へ配信する。発行元（origin一致）はスキップする。
func (h *Hub) Broadcast(_ context.Context, origin, key string, newValue []byte) error {
	env := Envelope{
		Origin:   origin,
		Key:      key,
		NewValue: newValue,
	}

	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[key]))
	for id, handler := range h.subs[key] {
		if id == origin {
			continue
		}
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	// ロック外でハンドラを呼び出す。ハンドラ内からのBroadcast再入でも
	// デッドロックしない。
	for _, handler := range handlers {
		handler(env)
	}
	return nil
}

// Subscribe は指定キーの購読を開始する。
func (h *Hub) Subscribe(key string, handler Handler) (*Subscription, error) {
	id := uuid.NewString()

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[string]Handler)
	}
	h.subs[key][id] = handler
	h.mu.Unlock()

	return &Subscription{
		ID: id,
		stop: func() {
			h.mu.Lock()
			delete(h.subs[key], id)
			h.mu.Unlock()
		},
	}, nil
}
