package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/casewatch/internal/metrics"
	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	Guard             *middleware.RouteGuard
	RateLimiter       *middleware.RateLimiter
	BaseURL           string
	CORSAllowedOrigin string

	// 認証
	AuthService LoginService
	Cookies     SessionCookies
	AuthConfig  AuthHandlerConfig

	// ダッシュボード
	Reports   ReportFetcher
	Sanitizer security.DisplaySanitizerService

	// /api/* の中継先
	BackendProxy http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → Session → SecurityHeaders → OriginCheck → RouteGuard
//
// セッションの復元はルートガードおよびすべてのハンドラーより先に一度だけ行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewOriginCheckMiddleware(deps.BaseURL, deps.CORSAllowedOrigin))
	r.Use(deps.Guard.Middleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Cookies, deps.AuthConfig)
	dashboardHandler := NewDashboardHandler(deps.Reports, deps.Cookies, deps.Guard, deps.Sanitizer)

	// --- 運用 ---
	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	loginPath := authHandler.config.LoginPath
	r.Get(loginPath, authHandler.LoginPage)
	if deps.RateLimiter != nil {
		r.With(deps.RateLimiter.LoginMiddleware()).Post(loginPath, authHandler.Login)
	} else {
		r.Post(loginPath, authHandler.Login)
	}
	r.Post("/logout", authHandler.Logout)

	// --- 保護されたページ（RouteGuardが未認証をリダイレクトする） ---
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", dashboardHandler.Dashboard)
		r.Get("/newreport/{id}", dashboardHandler.NewReport)
	})

	// --- バックエンドへの中継 ---
	if deps.BackendProxy != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.BaseURL, deps.CORSAllowedOrigin))
			r.Handle("/*", deps.BackendProxy)
		})
	}

	return r
}
