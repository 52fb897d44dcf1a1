package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hitoshi/casewatch/internal/session"
)

// RedirectToParam はログイン後の遷移先を受け渡すクエリパラメータ名。
const RedirectToParam = "redirectTo"

// ガードによるリダイレクトの理由。メトリクスのラベルに使用する。
const (
	RedirectReasonUnauthenticated = "unauthenticated"
	RedirectReasonMissingSession  = "missing_session"
)

// GuardConfig はルートガードの設定。
type GuardConfig struct {
	LoginPath         string
	ProtectedPrefixes []string
}

// GuardRecorder はガードによるリダイレクトを記録する。
type GuardRecorder interface {
	RecordGuardRedirect(reason string)
}

// Redirect は処理を中断してクライアントに返すリダイレクト。
type Redirect struct {
	Status   int
	Location string
}

// Write はリダイレクトをレスポンスに書き込む。
func (rd *Redirect) Write(w http.ResponseWriter) {
	w.Header().Set("Location", rd.Location)
	w.WriteHeader(rd.Status)
}

// RouteGuard は保護されたパスへの未認証アクセスをログインへ誘導する。
type RouteGuard struct {
	config   GuardConfig
	recorder GuardRecorder
}

// NewRouteGuard はRouteGuardを生成する。recorderはnilでもよい。
func NewRouteGuard(config GuardConfig, recorder GuardRecorder) *RouteGuard {
	prefixes := make([]string, 0, len(config.ProtectedPrefixes))
	for _, p := range config.ProtectedPrefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		prefixes = append(prefixes, path.Clean("/"+p))
	}
	config.ProtectedPrefixes = prefixes
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	return &RouteGuard{config: config, recorder: recorder}
}

// IsProtected はパスが保護されたプレフィックス配下にあるかを判定する。
// 照合はセグメント単位で行う（/dashboardxは対象外）。
// 受け取ったままのパスと正規化後のパスのどちらかが一致すれば保護対象とする。
// /dashboard/../xや/dashboard/..%2Fxのようにプレフィックス配下から
// 抜け出すパスも、ルーターがプレフィックス配下に振り分けるため保護対象になる。
func (g *RouteGuard) IsProtected(p string) bool {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return g.matchPrefix(p) || g.matchPrefix(path.Clean(p))
}

func (g *RouteGuard) matchPrefix(p string) bool {
	for _, prefix := range g.config.ProtectedPrefixes {
		if prefix == "/" {
			return true
		}
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// Check は保護されたパスへの未認証リクエストに対してリダイレクトを返す。
// 通過させる場合はnilを返す。
func (g *RouteGuard) Check(identity session.Identity, r *http.Request) *Redirect {
	if identity.Authenticated() {
		return nil
	}
	// chiはエスケープされたままのパスで振り分けるため、両方の表現で判定する
	if !g.IsProtected(r.URL.EscapedPath()) && !g.IsProtected(r.URL.Path) {
		return nil
	}
	return g.redirect(r, RedirectReasonUnauthenticated)
}

// RequireSession はユーザーとトークンの両方を要求するページ単位のチェック。
// どちらかが欠けている場合はログインへのリダイレクトを返す。
func (g *RouteGuard) RequireSession(identity session.Identity, r *http.Request) *Redirect {
	if identity.HasSession() {
		return nil
	}
	return g.redirect(r, RedirectReasonMissingSession)
}

// LoginRedirect は元のURLを遷移先として保持するログインへのリダイレクトを返す。
// セッション失効時などガード以外の箇所からも使用する。
func (g *RouteGuard) LoginRedirect(r *http.Request) *Redirect {
	return &Redirect{
		Status:   redirectStatus(r.Method),
		Location: g.LoginURL(r.URL),
	}
}

// LoginURL はログインページのURLを組み立てる。
// redirectToにはパスとクエリ文字列をそのまま渡す。
func (g *RouteGuard) LoginURL(u *url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return g.config.LoginPath + "?" + url.Values{RedirectToParam: {target}}.Encode()
}

// Middleware はCheckを適用するミドルウェアを返す。
// セッションミドルウェアの後に配置する。
func (g *RouteGuard) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rd := g.Check(IdentityFromContext(r.Context()), r); rd != nil {
				rd.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *RouteGuard) redirect(r *http.Request, reason string) *Redirect {
	if g.recorder != nil {
		g.recorder.RecordGuardRedirect(reason)
	}
	slog.Info("redirecting to login",
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	)
	return g.LoginRedirect(r)
}

// redirectStatus はGET/HEADには307、それ以外には303を返す。
// 303にするとPOSTの本文がログインフォームに再送されない。
func redirectStatus(method string) int {
	switch method {
	case http.MethodGet, http.MethodHead:
		return http.StatusTemporaryRedirect
	default:
		return http.StatusSeeOther
	}
}
