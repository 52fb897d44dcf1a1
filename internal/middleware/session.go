// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/casewatch/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証状態を格納するためのキー。
var identityContextKey = contextKey("identity")

var identityHolderContextKey = contextKey("identity_holder")

// identityHolder は前段のミドルウェア（ログ出力）に復元したユーザーIDを伝える。
type identityHolder struct {
	user int64
}

func contextWithIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, identityHolderContextKey, h)
}

// HydrationRecorder は認証状態復元の結果を記録する。
type HydrationRecorder interface {
	RecordHydration(result string)
}

// NewSessionMiddleware はCookieペアから認証状態を復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 未認証でもリクエストは拒否しない。アクセス制御はRouteGuardが行う。
// session_userが壊れている場合は警告ログを出力し、未認証として扱う。
func NewSessionMiddleware(recorder HydrationRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, result, err := session.Hydrate(r)
			if err != nil {
				slog.Warn("discarding corrupt session cookie",
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("error", err.Error()),
				)
			}
			if recorder != nil {
				recorder.RecordHydration(string(result))
			}
			if h, ok := r.Context().Value(identityHolderContextKey).(*identityHolder); ok && identity.Authenticated() {
				h.user = identity.User.ID
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証状態を取得する。
// セッションミドルウェアを通過していない場合は未認証のIdentityを返す。
func IdentityFromContext(ctx context.Context) session.Identity {
	identity, _ := ctx.Value(identityContextKey).(session.Identity)
	return identity
}

// ContextWithIdentity はコンテキストに認証状態を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity session.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
