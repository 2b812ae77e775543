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
// ミドルウェアやサービス層、バックグラウンドジョブから利用する。
type MetricsCollector interface {
	RecordRateLimitDecision(allowed bool)
	RecordRateLimitStoreError()
	RecordActivity(outcome string)
	RecordActivityDropped()
	RecordAccessRedirect(category, target string)
	RecordAuthAttempt(action, result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	rateLimitDecisions *prometheus.CounterVec
	rateLimitStoreErr  prometheus.Counter
	activityJobs       *prometheus.CounterVec
	activityDropped    prometheus.Counter
	accessRedirects    *prometheus.CounterVec
	authAttempts       *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	requestLatency     prometheus.Histogram
	sessionsPurged     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwise_ratelimit_decisions_total",
			Help: "認証レート制限の判定数（decision=admitted|rejected）",
		}, []string{"decision"}),
		rateLimitStoreErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookwise_ratelimit_store_errors_total",
			Help: "カウンタストアへのアクセス失敗の合計数",
		}),
		activityJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwise_activity_jobs_total",
			Help: "最終利用日記録ジョブの結果別件数",
		}, []string{"outcome"}),
		activityDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookwise_activity_dropped_total",
			Help: "待ち行列が満杯のため破棄された最終利用日記録ジョブの合計数",
		}),
		accessRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwise_access_gate_redirects_total",
			Help: "アクセスゲートによるリダイレクト数",
		}, []string{"category", "target"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwise_auth_attempts_total",
			Help: "サインイン・サインアップの試行数（result=success|failure|rate_limited）",
		}, []string{"action", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwise_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookwise_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookwise_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.rateLimitDecisions,
		c.rateLimitStoreErr,
		c.activityJobs,
		c.activityDropped,
		c.accessRedirects,
		c.authAttempts,
		c.httpStatus,
		c.requestLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordRateLimitDecision はレート制限の判定結果を記録する。
func (c *Collector) RecordRateLimitDecision(allowed bool) {
	decision := "rejected"
	if allowed {
		decision = "admitted"
	}
	c.rateLimitDecisions.WithLabelValues(decision).Inc()
}

// RecordRateLimitStoreError はカウンタストア障害を記録する。
func (c *Collector) RecordRateLimitStoreError() {
	c.rateLimitStoreErr.Inc()
}

// RecordActivity は最終利用日記録ジョブの結果を記録する。
func (c *Collector) RecordActivity(outcome string) {
	c.activityJobs.WithLabelValues(outcome).Inc()
}

// RecordActivityDropped は破棄された最終利用日記録ジョブを記録する。
func (c *Collector) RecordActivityDropped() {
	c.activityDropped.Inc()
}

// RecordAccessRedirect はアクセスゲートのリダイレクトを記録する。
func (c *Collector) RecordAccessRedirect(category, target string) {
	c.accessRedirects.WithLabelValues(category, target).Inc()
}

// RecordAuthAttempt は認証アクションの結果を記録する。
func (c *Collector) RecordAuthAttempt(action, result string) {
	c.authAttempts.WithLabelValues(action, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
