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
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordUserCreated()
	RecordTokenIssued()
	RecordTokenRevoked()
	RecordTokensPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	loginSuccess  prometheus.Counter
	loginFail     prometheus.Counter
	usersCreated  prometheus.Counter
	tokensIssued  prometheus.Counter
	tokensRevoked prometheus.Counter
	tokensPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userman_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・パス・ステータス別）",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_users_created_total",
			Help: "作成されたユーザーの合計数",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_tokens_issued_total",
			Help: "発行されたトークンペアの合計数",
		}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_tokens_revoked_total",
			Help: "失効されたリフレッシュトークンの合計数",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userman_tokens_purged_total",
			Help: "クリーンアップで削除されたリフレッシュトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.loginSuccess,
		c.loginFail,
		c.usersCreated,
		c.tokensIssued,
		c.tokensRevoked,
		c.tokensPurged,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
// pathにはルートパターン（/users/{id}など）を渡すこと。
// 生のURLパスを渡すとラベルの基数が爆発する。
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordTokenIssued はトークンペアの発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordTokenRevoked はリフレッシュトークンの失効を記録する。
func (c *Collector) RecordTokenRevoked() {
	c.tokensRevoked.Inc()
}

// RecordTokensPurged はクリーンアップで削除されたトークン数を記録する。
func (c *Collector) RecordTokensPurged(count int) {
	c.tokensPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute はワーカープロセスの運用エンドポイントを提供するHTTPハンドラーを返す。
// /metrics はPrometheusスクレイプ用、/health はコンテナのヘルスチェック用。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
