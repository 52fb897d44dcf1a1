package middleware

import "net/http"

// NewCORSMiddleware は/api配下の中継に対するCORSミドルウェアを返す。
//
// リクエストのOriginが許可リスト（NewOriginCheckMiddlewareと同じ判定）に含まれる場合のみ
// そのOriginを反映し、credentials付きのアクセスを許可する。ワイルドカード(*)は使用しない。
// 許可されていないOriginにはCORSヘッダーを一切付与しない。
// OPTIONSプリフライトリクエストには204で応答し、中継先には渡さない。
func NewCORSMiddleware(allowedOrigins ...string) func(next http.Handler) http.Handler {
	allowed := newOriginSet(allowedOrigins...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 応答内容がOriginによって変わるためキャッシュに伝える
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && allowed.contains(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
