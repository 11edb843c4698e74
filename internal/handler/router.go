package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/applyman/internal/metrics"
	"github.com/hitoshi/applyman/internal/middleware"
)

// Pinger はヘルスチェックでの死活確認の契約。sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// アカウント
	AccountService AccountServiceInterface
	SessionWriter  SessionWriter

	// 観測
	Logger   *slog.Logger
	Reporter middleware.StatusReporter
	Gatherer prometheus.Gatherer

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → セキュリティヘッダー → ロギング → リカバリー → レート制限(General) → CSRF
//
// /person/me のみセッションミドルウェアを追加で通す。
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Reporter))
	r.Use(middleware.NewRecoveryMiddleware())

	personHandler := NewPersonHandler(deps.AccountService, deps.SessionWriter, deps.RateLimiter)

	// --- 運用系ルート（レート制限の外） ---

	r.Get("/healthz", newHealthzHandler(deps.DB))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- APIルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/person", func(r chi.Router) {
			r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

			// 認証不要のルート
			r.Post("/login", personHandler.Login)
			r.Post("/sendVerification", personHandler.SendVerification)
			r.Post("/verifyVerificationCode", personHandler.VerifyVerificationCode)
			r.Post("/logout", personHandler.Logout)

			// 認証が必要なルート
			r.With(middleware.NewSessionMiddleware(deps.TokenVerifier)).Get("/me", personHandler.Me)
		})
	})

	return r
}

// newHealthzHandler はDB死活確認付きのヘルスチェックハンドラーを返す。
func newHealthzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
