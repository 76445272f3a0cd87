package store

import (
	"context"
	"sync"
)

// MemoryKV はインメモリのKV実装。
// テストおよび単一プロセス構成で使用する。値はコピーして保持するため、
// 呼び出し側のバッファ変更が保存済みデータに波及することはない。
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV はMemoryKVの新しいインスタンスを生成する。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		values: make(map[string][]byte),
	}
}

// Get は指定キーの値のコピーを返す。キーが存在しない場合はok=falseを返す。
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set は指定キーの値を全置換で書き込む。
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Ping は常にnilを返す。
func (m *MemoryKV) Ping(_ context.Context) error {
	return nil
}
