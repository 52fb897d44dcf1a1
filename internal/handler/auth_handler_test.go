package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/model"
	"github.com/hitoshi/casewatch/internal/session"
)

// --- モック定義 ---

type mockLoginService struct {
	calls   int
	loginFn func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
}

func (m *mockLoginService) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	m.calls++
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return nil, nil
}

// --- ヘルパー ---

func testUser() *model.User {
	name := "Aki Tanaka"
	return &model.User{
		ID:        7,
		Email:     "nurse@example.com",
		FullName:  &name,
		IsActive:  true,
		CreatedAt: "2025-01-02T03:04:05",
		Role:      model.RoleSenior,
	}
}

func successResult(token string) *model.AuthResult {
	return &model.AuthResult{AccessToken: token, TokenType: "bearer", User: testUser()}
}

func newTestAuthHandler(svc LoginService) *AuthHandler {
	return NewAuthHandler(svc, session.NewCookieWriter(session.CookieOptions{}), AuthHandlerConfig{
		LoginPath:   "/login",
		LandingPath: "/dashboard",
	})
}

func postLogin(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func countSetCookie(resp *http.Response, name string) int {
	n := 0
	for _, c := range resp.Cookies() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// assertCleared は両方のセッションCookieが破棄されていることを検証する。
func assertCleared(t *testing.T, resp *http.Response) {
	t.Helper()
	for _, name := range []string{session.IDCookieName, session.UserCookieName} {
		c := findCookie(resp, name)
		if c == nil {
			t.Errorf("%s: expected a clearing Set-Cookie", name)
			continue
		}
		if c.MaxAge >= 0 {
			t.Errorf("%s: MaxAge = %d, want negative", name, c.MaxAge)
		}
	}
}

// --- テスト ---

func TestAuthHandler_Login_MissingPassword_NoBackendCall(t *testing.T) {
	svc := &mockLoginService{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			if creds.Password == "" {
				return nil, model.NewMissingPasswordFailure(creds.Email)
			}
			return successResult("tok"), nil
		},
	}
	h := newTestAuthHandler(svc)

	req := postLogin("/login", url.Values{"email": {"nurse@example.com"}, "password": {""}})
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body middleware.LoginFormBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !body.MissingPassword {
		t.Error("expected missing_password flag")
	}
	if body.Email != "nurse@example.com" {
		t.Errorf("email = %q, want submitted email", body.Email)
	}
	assertCleared(t, resp)
}

func TestAuthHandler_Login_InvalidCredentials_NeverEchoesPassword(t *testing.T) {
	svc := &mockLoginService{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			return nil, model.NewInvalidCredentialsFailure(creds.Email)
		},
	}
	h := newTestAuthHandler(svc)

	req := postLogin("/login", url.Values{"email": {"nurse@example.com"}, "password": {"hunter2-secret"}})
	req.AddCookie(&http.Cookie{Name: session.IDCookieName, Value: "stale-token"})
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if strings.Contains(w.Body.String(), "hunter2-secret") {
		t.Error("password echoed in response body")
	}
	for _, c := range resp.Cookies() {
		if strings.Contains(c.Value, "hunter2-secret") {
			t.Errorf("password stored in cookie %s", c.Name)
		}
	}
	// 失敗時も既存のセッションは破棄される
	assertCleared(t, resp)
}

func TestAuthHandler_Login_Success_IssuesCookiesAndRedirects(t *testing.T) {
	var got model.Credentials
	svc := &mockLoginService{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			got = creds
			return successResult("tok-success"), nil
		},
	}
	h := newTestAuthHandler(svc)

	req := postLogin("/login", url.Values{"email": {"nurse@example.com"}, "password": {"pw"}})
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}
	if got.Email != "nurse@example.com" || got.Password != "pw" {
		t.Errorf("service received %+v", got)
	}

	id := findCookie(resp, session.IDCookieName)
	if id == nil || id.Value != "tok-success" || id.MaxAge != 3600 || !id.HttpOnly {
		t.Errorf("session_id = %+v, want token, MaxAge 3600, HttpOnly", id)
	}
	user := findCookie(resp, session.UserCookieName)
	if user == nil || user.MaxAge != 3600 || user.HttpOnly {
		t.Errorf("session_user = %+v, want MaxAge 3600, readable", user)
	}

	for _, name := range []string{session.IDCookieName, session.UserCookieName} {
		if n := countSetCookie(resp, name); n != 1 {
			t.Errorf("%s: Set-Cookie count = %d, want 1", name, n)
		}
	}
}

func TestAuthHandler_Login_RedirectTo(t *testing.T) {
	tests := []struct {
		name   string
		target string
		form   url.Values
		want   string
	}{
		{"query param", "/login?redirectTo=%2Fdashboard%2Fnewreport%2F5%3Fx%3D1", nil, "/dashboard/newreport/5?x=1"},
		{"form field", "/login", url.Values{"redirectTo": {"/dashboard/newreport/8"}}, "/dashboard/newreport/8"},
		{"external url", "/login?redirectTo=https%3A%2F%2Fevil.example.com", nil, "/dashboard"},
		{"protocol relative", "/login?redirectTo=%2F%2Fevil.example.com", nil, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLoginService{
				loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
					return successResult("tok"), nil
				},
			}
			h := newTestAuthHandler(svc)

			form := url.Values{"email": {"nurse@example.com"}, "password": {"pw"}}
			for k, v := range tt.form {
				form[k] = v
			}
			w := httptest.NewRecorder()
			h.Login(w, postLogin(tt.target, form))

			if loc := w.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
		})
	}
}

func TestAuthHandler_Login_UnsafeToken_ReturnsUnknownWithoutSession(t *testing.T) {
	svc := &mockLoginService{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			return successResult("bad token;with=chars"), nil
		},
	}
	h := newTestAuthHandler(svc)

	w := httptest.NewRecorder()
	h.Login(w, postLogin("/login", url.Values{"email": {"nurse@example.com"}, "password": {"pw"}}))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
	var body middleware.LoginFormBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !body.UnknownError {
		t.Error("expected unknown_error flag")
	}
	assertCleared(t, resp)
}

func TestAuthHandler_Login_UnexpectedError_Returns500(t *testing.T) {
	svc := &mockLoginService{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			return nil, errors.New("unexpected")
		},
	}
	h := newTestAuthHandler(svc)

	w := httptest.NewRecorder()
	h.Login(w, postLogin("/login", url.Values{"email": {"a@example.com"}, "password": {"pw"}}))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestAuthHandler_LoginPage_ReturnsPageData(t *testing.T) {
	h := newTestAuthHandler(&mockLoginService{})

	req := httptest.NewRequest(http.MethodGet, "/login?redirectTo=%2Fdashboard%2Fnewreport%2F5%3Fx%3D1", nil)
	w := httptest.NewRecorder()
	h.LoginPage(w, req)

	var body loginPageData
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.RedirectTo != "/dashboard/newreport/5?x=1" {
		t.Errorf("redirectTo = %q", body.RedirectTo)
	}
	if body.Authenticated {
		t.Error("authenticated = true, want false")
	}

	req = httptest.NewRequest(http.MethodGet, "/login?redirectTo=https%3A%2F%2Fevil.example.com", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), session.Identity{User: testUser(), Token: "tok"}))
	w = httptest.NewRecorder()
	h.LoginPage(w, req)

	body = loginPageData{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.RedirectTo != "" {
		t.Errorf("redirectTo = %q, want empty for external url", body.RedirectTo)
	}
	if !body.Authenticated {
		t.Error("authenticated = false, want true")
	}
}

func TestAuthHandler_Logout_ClearsCookiesAndRedirects(t *testing.T) {
	h := newTestAuthHandler(&mockLoginService{})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), session.Identity{User: testUser(), Token: "tok"}))
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	assertCleared(t, resp)
}
