package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/casewatch/internal/auth"
	"github.com/hitoshi/casewatch/internal/backend"
	"github.com/hitoshi/casewatch/internal/config"
	"github.com/hitoshi/casewatch/internal/handler"
	"github.com/hitoshi/casewatch/internal/logger"
	"github.com/hitoshi/casewatch/internal/metrics"
	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/security"
	"github.com/hitoshi/casewatch/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前にもログを使えるようにInfoレベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("backend_url", cfg.BackendURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg)
}

// NewHandler は設定から全依存関係をワイヤリングしたHTTPハンドラーを構築する。
// 戻り値のcleanupはバックグラウンド処理を停止する。
func NewHandler(cfg *config.Config, reg *prometheus.Registry) (http.Handler, func(), error) {
	backendURL, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse backend url: %w", err)
	}

	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. バックエンドクライアントと認証サービス
	client := backend.NewClient(
		&http.Client{Timeout: cfg.BackendTimeout},
		cfg.BackendURL,
		slog.Default(),
		collector,
	)
	authService := auth.NewService(client, collector, slog.Default())

	// 3. セッションとルートガード
	cookies := session.NewCookieWriter(session.CookieOptions{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	})
	guard := middleware.NewRouteGuard(middleware.GuardConfig{
		LoginPath:         cfg.LoginPath,
		ProtectedPrefixes: cfg.ProtectedPrefixes,
	}, collector)

	// 4. レート制限（ログイン送信のみ）
	rateLimiter := middleware.NewRateLimiter(middleware.LoginRateLimiterConfig(cfg.RateLimitLogin))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		Guard:             guard,
		RateLimiter:       rateLimiter,
		BaseURL:           cfg.BaseURL,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		AuthService: authService,
		Cookies:     cookies,
		AuthConfig: handler.AuthHandlerConfig{
			LoginPath:   cfg.LoginPath,
			LandingPath: cfg.LandingPath,
		},

		Reports:   client,
		Sanitizer: security.NewDisplaySanitizer(),

		BackendProxy: handler.NewBackendProxy(backendURL),
	})

	return router, rateLimiter.Stop, nil
}

// runServe はゲートウェイサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, cleanup, err := NewHandler(cfg, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down gateway server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
