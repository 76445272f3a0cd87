package store

import (
	"context"

	"github.com/hitoshi/taskdash/internal/metrics"
)

// InstrumentedKV はKVをラップし、読み書きをメトリクスに記録するデコレータ。
type InstrumentedKV struct {
	inner    KV
	recorder metrics.Recorder
}

// NewInstrumentedKV はInstrumentedKVの新しいインスタンスを生成する。
func NewInstrumentedKV(inner KV, recorder metrics.Recorder) *InstrumentedKV {
	return &InstrumentedKV{
		inner:    inner,
		recorder: recorder,
	}
}

// Get は読み取りを記録してから委譲する。
func (i *InstrumentedKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	i.recorder.RecordStoreRead(key)
	return i.inner.Get(ctx, key)
}

// Set は書き込みを記録してから委譲する。
func (i *InstrumentedKV) Set(ctx context.Context, key string, value []byte) error {
	i.recorder.RecordStoreWrite(key)
	return i.inner.Set(ctx, key, value)
}

// Ping は内側のバックエンドがPingerを実装していれば委譲し、そうでなければnilを返す。
func (i *InstrumentedKV) Ping(ctx context.Context) error {
	if p, ok := i.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
