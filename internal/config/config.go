package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Environment
	AppEnv     string
	Production bool

	// Backend
	BackendURL     string
	BackendTimeout time.Duration

	// Routing
	LoginPath         string
	LandingPath       string
	ProtectedPrefixes []string

	// Rate Limit
	RateLimitLogin int // ログイン送信の上限（req/min/IP）

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// BACKEND_URLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.BackendURL = strings.TrimRight(getEnvString("BACKEND_URL", "http://localhost:8000"), "/")
	if err := validateBackendURL(cfg.BackendURL); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_URL: %w", err)
	}

	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.Production = strings.EqualFold(cfg.AppEnv, "production")
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
	cfg.LoginPath = getEnvPath("LOGIN_PATH", "/login")
	cfg.LandingPath = getEnvPath("LANDING_PATH", "/dashboard")
	cfg.ProtectedPrefixes = getEnvPathList("PROTECTED_PREFIXES", []string{"/dashboard"})
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:8080"), "/")
	// Secure属性は本番環境でのみ付与する
	cfg.CookieSecure = cfg.Production
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

	return cfg, nil
}

// validateBackendURL はバックエンドURLが絶対http(s) URLかどうかを検証する。
func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvPath は"/"で始まるパスのみ受け付ける。
func getEnvPath(key, defaultVal string) string {
	v := os.Getenv(key)
	if !strings.HasPrefix(v, "/") {
		return defaultVal
	}
	return v
}

// getEnvPathList はカンマ区切りのパス一覧を読み込む。
// "/"で始まらない要素は無視し、有効な要素が1つもなければデフォルト値を返す。
func getEnvPathList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	var paths []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "/") {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return defaultVal
	}
	return paths
}
