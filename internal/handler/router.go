package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/userman/internal/auth"
	"github.com/hitoshi/userman/internal/middleware"
	"github.com/hitoshi/userman/internal/user"
)

// HealthChecker はDB接続の死活確認インターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger // nilの場合はslog.Defaultを使う

	// メトリクス（いずれもnil可）
	HTTPMetrics    middleware.HTTPMetricsRecorder
	AuthMetrics    AuthMetricsRecorder
	UserMetrics    UserMetricsRecorder
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →
//	  認証エンドポイント: AuthEndpointsRateLimit → Metrics
//	  保護ルート:         Auth → GeneralRateLimit → Metrics
//
// /health /ready /metrics は共通ミドルウェアのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通ミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics)
	userHandler := NewUserHandler(deps.UserService, deps.UserMetrics)

	authMW := middleware.NewAuthMiddleware(deps.TokenVerifier)
	generalLimit := deps.RateLimiter.GeneralMiddleware()
	authLimit := deps.RateLimiter.AuthEndpointsMiddleware()

	var metricsMW func(http.Handler) http.Handler
	if deps.HTTPMetrics != nil {
		metricsMW = middleware.NewMetricsMiddleware(deps.HTTPMetrics)
	}

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証エンドポイント
	r.Route("/auth", func(r chi.Router) {
		// トークン発行系はIP単位のレート制限を適用する
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			if metricsMW != nil {
				r.Use(metricsMW)
			}

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		// 認証が必要なエンドポイント
		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Use(generalLimit)
			if metricsMW != nil {
				r.Use(metricsMW)
			}

			r.Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なルート ---

	// ユーザー管理
	r.Route("/users", func(r chi.Router) {
		r.Use(authMW)
		r.Use(generalLimit)
		if metricsMW != nil {
			r.Use(metricsMW)
		}

		r.Get("/", userHandler.List)
		r.Post("/", userHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Put("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)
		})
	})

	return r
}

// handleHealth はプロセスの生存確認に応答する。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReady はDB接続を確認し、リクエスト受付可否を返す。
// GET /ready
func handleReady(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if checker == nil || checker.PingContext(ctx) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"ready":false}`))
			return
		}
		w.Write([]byte(`{"ready":true}`))
	}
}

// --- compile-time interface checks ---

var (
	_ AuthServiceInterface = (*auth.Service)(nil)
	_ UserServiceInterface = (*user.Service)(nil)
)
