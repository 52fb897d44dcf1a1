// Package handler はHTTPハンドラーを提供する。
//
// 画面の描画は行わず、各ページのサーバー側ローダーが返すページデータをJSONで返す。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/model"
	"github.com/hitoshi/casewatch/internal/security"
)

// maxLoginFormSize はログインフォームの本文の最大サイズ。
const maxLoginFormSize = 64 << 10

// LoginService はログイン送信を処理するサービスインターフェース。
type LoginService interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
}

// SessionCookies はセッションCookieペアの発行と破棄を行う。
type SessionCookies interface {
	Issue(w http.ResponseWriter, res *model.AuthResult) error
	Clear(w http.ResponseWriter)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	LoginPath   string
	LandingPath string
}

// AuthHandler はログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service LoginService
	cookies SessionCookies
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service LoginService, cookies SessionCookies, config AuthHandlerConfig) *AuthHandler {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	if config.LandingPath == "" {
		config.LandingPath = "/dashboard"
	}
	return &AuthHandler{
		service: service,
		cookies: cookies,
		config:  config,
	}
}

// loginPageData はログインページのページデータ。
type loginPageData struct {
	RedirectTo    string `json:"redirectTo"`
	Authenticated bool   `json:"authenticated"`
}

// LoginPage はログインページのページデータを返す。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, loginPageData{
		RedirectTo:    security.SafeRedirectPath(r.URL.Query().Get(middleware.RedirectToParam), ""),
		Authenticated: middleware.IdentityFromContext(r.Context()).Authenticated(),
	})
}

// Login はログインフォームの送信を処理する。
// POST /login
//
// 送信のたびに既存のセッションCookieを両方とも破棄してから認証する。
// 失敗時はフォームのフィールドフラグを返し、成功時はCookieペアを発行して
// redirectTo（サイト内のパスの場合）またはランディングページへ303でリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginFormSize)
	if err := r.ParseForm(); err != nil {
		slog.Warn("failed to parse login form",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
	}

	creds := model.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	res, err := h.service.Login(r.Context(), creds)
	if err != nil {
		var failure *model.LoginFailure
		if errors.As(err, &failure) {
			middleware.WriteLoginFailure(w, failure)
			return
		}
		slog.Error("unexpected login error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.cookies.Issue(w, res); err != nil {
		slog.Error("failed to issue session cookies",
			slog.Int64("user_id", res.User.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteLoginFailure(w, model.NewUnknownAuthFailure(res.User.Email, err))
		return
	}

	target := r.URL.Query().Get(middleware.RedirectToParam)
	if target == "" {
		target = r.PostFormValue(middleware.RedirectToParam)
	}
	http.Redirect(w, r, security.SafeRedirectPath(target, h.config.LandingPath), http.StatusSeeOther)
}

// Logout はセッションCookieを破棄してログインページへリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity.Authenticated() {
		slog.Info("user logged out", slog.Int64("user_id", identity.User.ID))
	}

	h.cookies.Clear(w)
	http.Redirect(w, r, h.config.LoginPath, http.StatusSeeOther)
}
