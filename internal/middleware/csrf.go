package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/casewatch/internal/model"
)

// NewOriginCheckMiddleware はフォーム送信のクロスサイトリクエストを拒否するミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップする。
// 状態変更メソッドでOriginヘッダーが存在し、許可されたオリジンのいずれとも一致しない場合は403を返す。
// Originヘッダーのないリクエスト（同一オリジンの古いクライアントやサーバー間呼び出し）は通過させる。
func NewOriginCheckMiddleware(allowedOrigins ...string) func(next http.Handler) http.Handler {
	allowed := newOriginSet(allowedOrigins...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed.contains(origin) {
				slog.Warn("cross-site request rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("origin", origin),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:     model.ErrCodeForbiddenOrigin,
					Message:  "クロスサイトからのフォーム送信は許可されていません。",
					Category: "auth",
					Action:   "ページを再読み込みしてから再度お試しください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originSet は正規化済みの許可オリジンの集合。
type originSet map[string]struct{}

func newOriginSet(origins ...string) originSet {
	set := make(originSet, len(origins))
	for _, o := range origins {
		if normalized := originOf(o); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// contains は正規化後のoriginが集合に含まれるかを返す。不正な値は常に含まれない。
func (s originSet) contains(origin string) bool {
	normalized := originOf(origin)
	if normalized == "" {
		return false
	}
	_, ok := s[normalized]
	return ok
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// originOf はURLを「scheme://host」の形に正規化する。
// 解釈できない値や"null"は空文字を返し、どのオリジンとも一致しない。
func originOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
