// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// ストアデコレータ、ノーティファイア、マネージャから利用する。
type Recorder interface {
	RecordStoreRead(key string)
	RecordStoreWrite(key string)
	RecordBroadcastSent(key string)
	RecordBroadcastReceived(key string)
	RecordSeed(collection string)
	RecordLoadLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeReads        *prometheus.CounterVec
	storeWrites       *prometheus.CounterVec
	broadcastSent     *prometheus.CounterVec
	broadcastReceived *prometheus.CounterVec
	seeds             *prometheus.CounterVec
	loadLatency       prometheus.Histogram
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_store_reads_total",
			Help: "ストア読み取りの合計数（キー別）",
		}, []string{"key"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_store_writes_total",
			Help: "ストア書き込みの合計数（キー別）",
		}, []string{"key"}),
		broadcastSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_broadcast_sent_total",
			Help: "発行したチェンジブロードキャストの合計数（キー別）",
		}, []string{"key"}),
		broadcastReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_broadcast_received_total",
			Help: "受信したチェンジブロードキャストの合計数（キー別）",
		}, []string{"key"}),
		seeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_seed_total",
			Help: "デフォルトデータのシード実行の合計数（コレクション別）",
		}, []string{"collection"}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskdash_load_latency_seconds",
			Help:    "パネルロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdash_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.storeReads,
		c.storeWrites,
		c.broadcastSent,
		c.broadcastReceived,
		c.seeds,
		c.loadLatency,
		c.httpStatus,
	)

	return c
}

// RecordStoreRead はストア読み取りを記録する。
func (c *Collector) RecordStoreRead(key string) {
	c.storeReads.WithLabelValues(key).Inc()
}

// RecordStoreWrite はストア書き込みを記録する。
func (c *Collector) RecordStoreWrite(key string) {
	c.storeWrites.WithLabelValues(key).Inc()
}

// RecordBroadcastSent はブロードキャスト発行を記録する。
func (c *Collector) RecordBroadcastSent(key string) {
	c.broadcastSent.WithLabelValues(key).Inc()
}

// RecordBroadcastReceived はブロードキャスト受信を記録する。
func (c *Collector) RecordBroadcastReceived(key string) {
	c.broadcastReceived.WithLabelValues(key).Inc()
}

// RecordSeed はシード実行を記録する。
func (c *Collector) RecordSeed(collection string) {
	c.seeds.WithLabelValues(collection).Inc()
}

// RecordLoadLatency はパネルロードのレイテンシを記録する。
func (c *Collector) RecordLoadLatency(duration time.Duration) {
	c.loadLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop は何も記録しないRecorder実装。メトリクスが不要な配線やテストで使用する。
type Noop struct{}

// RecordStoreRead は何もしない。
func (Noop) RecordStoreRead(key string) {}

// RecordStoreWrite は何もしない。
func (Noop) RecordStoreWrite(key string) {}

// RecordBroadcastSent は何もしない。
func (Noop) RecordBroadcastSent(key string) {}

// RecordBroadcastReceived は何もしない。
func (Noop) RecordBroadcastReceived(key string) {}

// RecordSeed は何もしない。
func (Noop) RecordSeed(collection string) {}

// RecordLoadLatency は何もしない。
func (Noop) RecordLoadLatency(duration time.Duration) {}

// RecordHTTPStatus は何もしない。
func (Noop) RecordHTTPStatus(statusCode int) {}
