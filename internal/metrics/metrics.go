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
// 認証サービス、ミドルウェア、バックエンドクライアントから利用する。
type MetricsCollector interface {
	RecordLoginOutcome(code string)
	RecordHydration(result string)
	RecordGuardRedirect(reason string)
	RecordHTTPStatus(statusCode int)
	RecordBackendLatency(endpoint string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginOutcomes  *prometheus.CounterVec
	hydrations     *prometheus.CounterVec
	guardRedirects *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casewatch_login_outcomes_total",
			Help: "ログイン送信の結果別の件数",
		}, []string{"outcome"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casewatch_session_hydrations_total",
			Help: "Cookieからの認証状態復元の結果別の件数",
		}, []string{"result"}),
		guardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casewatch_guard_redirects_total",
			Help: "未認証アクセスをログインへリダイレクトした件数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casewatch_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casewatch_backend_request_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status_code"}),
	}

	reg.MustRegister(
		c.loginOutcomes,
		c.hydrations,
		c.guardRedirects,
		c.httpStatus,
		c.backendLatency,
	)

	return c
}

// RecordLoginOutcome はログイン送信の結果を記録する。
func (c *Collector) RecordLoginOutcome(code string) {
	c.loginOutcomes.WithLabelValues(code).Inc()
}

// RecordHydration は認証状態復元の結果を記録する。
func (c *Collector) RecordHydration(result string) {
	c.hydrations.WithLabelValues(result).Inc()
}

// RecordGuardRedirect はルートガードによるリダイレクトを記録する。
func (c *Collector) RecordGuardRedirect(reason string) {
	c.guardRedirects.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBackendLatency はバックエンド呼び出しのレイテンシを記録する。
// 通信エラーの場合のstatusCodeは0。
func (c *Collector) RecordBackendLatency(endpoint string, statusCode int, duration time.Duration) {
	c.backendLatency.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
