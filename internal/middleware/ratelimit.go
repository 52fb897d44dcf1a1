package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/casewatch/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	LoginRate       rate.Limit    // ログイン送信のレート（req/sec）。10/60
	LoginBurst      int           // ログイン送信のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// ログイン送信 10 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return LoginRateLimiterConfig(10)
}

// LoginRateLimiterConfig は1分あたりの許容回数からレート制限設定を生成する。
func LoginRateLimiterConfig(perMinute int) RateLimiterConfig {
	if perMinute <= 0 {
		perMinute = 10
	}
	return RateLimiterConfig{
		LoginRate:       rate.Limit(float64(perMinute) / 60.0),
		LoginBurst:      perMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのログイン送信のレート制限を管理する。
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.RWMutex
	limiters map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// LoginMiddleware はログイン送信のレート制限ミドルウェアを返す。
// 未認証のリクエストが対象のため、クライアントIPをキーとする。
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !rl.getOrCreateLimiter(key).Allow() {
				writeRateLimitResponse(w, rl.config.LoginRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("limit_type", "login"),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LimiterCount は現在管理されているリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) LimiterCount() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// getOrCreateLimiter はクライアントのリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	cl, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		rl.mu.Lock()
		cl.lastAccess = time.Now()
		rl.mu.Unlock()
		return cl.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// ダブルチェック
	if cl, exists := rl.limiters[key]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.LoginRate, rl.config.LoginBurst)
	rl.limiters[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, key)
		}
	}
}

// clientIP はRemoteAddrからクライアントIPを取り出す。
// X-Forwarded-Forは偽装できるため参照しない。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     model.ErrCodeRateLimited,
		Message:  "ログインの試行回数が多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
