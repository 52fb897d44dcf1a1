package handler

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/model"
)

// NewBackendProxy はブラウザからの/api/*をバックエンドに中継するハンドラーを返す。
//
// ブラウザのCookieヘッダーはバックエンドに転送しない。
// session_idはスクリプトから読めないため、復元済みのトークンがあり
// Authorizationヘッダーが無い場合はBearerトークンとして付与する。
// バックエンドのSet-Cookieはセッションを上書きしないよう除去する。
func NewBackendProxy(target *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")

			identity := middleware.IdentityFromContext(pr.In.Context())
			if identity.HasSession() && pr.Out.Header.Get("Authorization") == "" {
				pr.Out.Header.Set("Authorization", "Bearer "+identity.Token)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("backend proxy error",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			)
			middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
				Code:     model.ErrCodeBackendUnavailable,
				Message:  "バックエンドに接続できませんでした。",
				Category: "system",
				Action:   "しばらく待ってから再度お試しください。",
			})
		},
	}
}
