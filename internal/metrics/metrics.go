// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// キャッシュ、パーサー、ユーザーレジストリ、HTTP層から利用する。
type MetricsCollector interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordRowsParsed(accepted, skipped int)
	RecordParseLatency(duration time.Duration)
	RecordUsersFetchSuccess()
	RecordUsersFetchFailure(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	rowsAccepted   prometheus.Counter
	rowsSkipped    prometheus.Counter
	parseLatency   prometheus.Histogram
	usersFetchOK   prometheus.Counter
	usersFetchFail *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_cache_hits_total",
			Help: "キャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_cache_misses_total",
			Help: "キャッシュミス（再計算）の合計数",
		}),
		rowsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_rows_accepted_total",
			Help: "CSVから採用された行の合計数",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_rows_skipped_total",
			Help: "CSVでスキップされた行の合計数",
		}),
		parseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "presence_parse_latency_seconds",
			Help:    "在席データCSVのパース時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		usersFetchOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_users_fetch_success_total",
			Help: "ユーザーXML取得成功の合計数",
		}),
		usersFetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_users_fetch_fail_total",
			Help: "ユーザーXML取得失敗の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.rowsAccepted,
		c.rowsSkipped,
		c.parseLatency,
		c.usersFetchOK,
		c.usersFetchFail,
		c.httpStatus,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordRowsParsed は1回のパースで採用・スキップされた行数を記録する。
func (c *Collector) RecordRowsParsed(accepted, skipped int) {
	c.rowsAccepted.Add(float64(accepted))
	c.rowsSkipped.Add(float64(skipped))
}

// RecordParseLatency はパース時間を記録する。
func (c *Collector) RecordParseLatency(duration time.Duration) {
	c.parseLatency.Observe(duration.Seconds())
}

// RecordUsersFetchSuccess はユーザーXML取得成功を記録する。
func (c *Collector) RecordUsersFetchSuccess() {
	c.usersFetchOK.Inc()
}

// RecordUsersFetchFailure はユーザーXML取得失敗を理由別に記録する。
func (c *Collector) RecordUsersFetchFailure(reason string) {
	c.usersFetchFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
