package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPMetricsRecorder はHTTPリクエストメトリクスの記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type HTTPMetricsRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// NewMetricsMiddleware はHTTPリクエストの件数と処理時間を記録するミドルウェアを返す。
// パスラベルにはchiのルートパターン（/users/{id}など）を使用し、
// 生のURLパスによるラベル基数の爆発を避ける。
func NewMetricsMiddleware(rec HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sr := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(sr, r)

			// ルートパターンはルーティング確定後にのみ取得できる
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			rec.RecordHTTPRequest(r.Method, path, sr.statusCode, time.Since(start))
		})
	}
}
