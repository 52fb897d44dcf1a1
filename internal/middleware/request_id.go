package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名。
const RequestIDHeader = "X-Request-ID"

var requestIDContextKey = contextKey("request_id")

// maxRequestIDLen はクライアントから受け取るリクエストIDの最大長。
const maxRequestIDLen = 128

// NewRequestIDMiddleware はリクエストIDを採番し、コンテキストとレスポンスヘッダーに設定する。
// 上流のプロキシが付与した妥当なX-Request-IDはそのまま引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !isValidRequestID(id) {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストIDを返す。未設定の場合は空文字を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// isValidRequestID はログに出力しても安全な英数字と記号のみで構成されているかを判定する。
func isValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
