package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/hitoshi/casewatch/internal/backend"
	"github.com/hitoshi/casewatch/internal/model"
)

// --- モック定義 ---

type mockAuthenticator struct {
	calls   int
	gotCred model.Credentials
	loginFn func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
}

func (m *mockAuthenticator) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	m.calls++
	m.gotCred = creds
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return nil, nil
}

type mockOutcomeRecorder struct {
	codes []string
}

func (m *mockOutcomeRecorder) RecordLoginOutcome(code string) {
	m.codes = append(m.codes, code)
}

func newTestService(a Authenticator, rec OutcomeRecorder) *Service {
	return NewService(a, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validResult() *model.AuthResult {
	return &model.AuthResult{
		AccessToken: "tok-ok",
		TokenType:   "bearer",
		User: &model.User{
			ID:        9,
			Email:     "epi@example.com",
			IsActive:  true,
			CreatedAt: "2025-01-01T00:00:00",
			Role:      model.RoleJunior,
		},
	}
}

func assertFailure(t *testing.T, err error, wantCode string) *model.LoginFailure {
	t.Helper()
	var f *model.LoginFailure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *model.LoginFailure", err)
	}
	if f.Code != wantCode {
		t.Errorf("Code = %q, want %q", f.Code, wantCode)
	}
	return f
}

// --- テスト ---

func TestLogin_MissingEmail_NoBackendCall(t *testing.T) {
	a := &mockAuthenticator{}
	s := newTestService(a, nil)

	for _, email := range []string{"", "   "} {
		_, err := s.Login(context.Background(), model.Credentials{Email: email, Password: "pw"})
		assertFailure(t, err, model.ErrCodeMissingEmail)
	}

	if a.calls != 0 {
		t.Errorf("backend calls = %d, want 0", a.calls)
	}
}

func TestLogin_MissingPassword_NoBackendCall(t *testing.T) {
	a := &mockAuthenticator{}
	rec := &mockOutcomeRecorder{}
	s := newTestService(a, rec)

	_, err := s.Login(context.Background(), model.Credentials{Email: "epi@example.com", Password: ""})

	f := assertFailure(t, err, model.ErrCodeMissingPassword)
	if f.Email != "epi@example.com" {
		t.Errorf("Email = %q, want submitted email for re-population", f.Email)
	}
	if a.calls != 0 {
		t.Errorf("backend calls = %d, want 0", a.calls)
	}
	if len(rec.codes) != 1 || rec.codes[0] != model.ErrCodeMissingPassword {
		t.Errorf("recorded outcomes = %v, want [%s]", rec.codes, model.ErrCodeMissingPassword)
	}
}

func TestLogin_MapsBackendStatuses(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"401", &backend.StatusError{Endpoint: "login", StatusCode: http.StatusUnauthorized}, model.ErrCodeInvalidCredentials},
		{"404", &backend.StatusError{Endpoint: "login", StatusCode: http.StatusNotFound}, model.ErrCodeUserNotFound},
		{"500", &backend.StatusError{Endpoint: "login", StatusCode: http.StatusInternalServerError}, model.ErrCodeUnknownAuth},
		{"422", &backend.StatusError{Endpoint: "login", StatusCode: http.StatusUnprocessableEntity}, model.ErrCodeUnknownAuth},
		{"network", errors.New("connection refused"), model.ErrCodeUnknownAuth},
		{"deadline", context.DeadlineExceeded, model.ErrCodeUnknownAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAuthenticator{
				loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
					return nil, tt.err
				},
			}
			s := newTestService(a, nil)

			res, err := s.Login(context.Background(), model.Credentials{Email: "epi@example.com", Password: "secret-pw"})

			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			f := assertFailure(t, err, tt.wantCode)
			if f.Email != "epi@example.com" {
				t.Errorf("Email = %q, want submitted email", f.Email)
			}
			if a.calls != 1 {
				t.Errorf("backend calls = %d, want 1 (no retries)", a.calls)
			}
		})
	}
}

func TestLogin_InvalidCredentials_NeverCarriesPassword(t *testing.T) {
	a := &mockAuthenticator{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			return nil, &backend.StatusError{Endpoint: "login", StatusCode: http.StatusUnauthorized}
		},
	}
	s := newTestService(a, nil)

	_, err := s.Login(context.Background(), model.Credentials{Email: "epi@example.com", Password: "super-secret"})

	f := assertFailure(t, err, model.ErrCodeInvalidCredentials)
	if f.Cause != nil {
		t.Errorf("Cause = %v, want nil for a classified failure", f.Cause)
	}
	apiErr := f.APIError()
	for _, s := range []string{f.Error(), f.Email, apiErr.Message, apiErr.Action} {
		if s == "super-secret" || containsStr(s, "super-secret") {
			t.Errorf("password leaked into failure: %q", s)
		}
	}
}

func TestLogin_Success_ReturnsResultAndTrimsEmail(t *testing.T) {
	a := &mockAuthenticator{
		loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
			return validResult(), nil
		},
	}
	rec := &mockOutcomeRecorder{}
	s := newTestService(a, rec)

	res, err := s.Login(context.Background(), model.Credentials{Email: "  epi@example.com ", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AccessToken != "tok-ok" {
		t.Errorf("AccessToken = %q, want %q", res.AccessToken, "tok-ok")
	}
	if a.gotCred.Email != "epi@example.com" {
		t.Errorf("backend email = %q, want trimmed", a.gotCred.Email)
	}
	if len(rec.codes) != 1 || rec.codes[0] != OutcomeSuccess {
		t.Errorf("recorded outcomes = %v, want [%s]", rec.codes, OutcomeSuccess)
	}
}

func TestLogin_SuccessWithIncompletePayload_ReturnsUnknown(t *testing.T) {
	tests := map[string]*model.AuthResult{
		"empty token": {User: validResult().User},
		"no user":     {AccessToken: "tok"},
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			a := &mockAuthenticator{
				loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
					return payload, nil
				},
			}
			s := newTestService(a, nil)

			_, err := s.Login(context.Background(), model.Credentials{Email: "epi@example.com", Password: "pw"})
			assertFailure(t, err, model.ErrCodeUnknownAuth)
		})
	}
}

func containsStr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestLogin_Failure_ReturnsSubmittedEmail(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		password string
		wantCode string
	}{
		{"missing password", 0, "", model.ErrCodeMissingPassword},
		{"invalid credentials", http.StatusUnauthorized, "pw", model.ErrCodeInvalidCredentials},
		{"user not found", http.StatusNotFound, "pw", model.ErrCodeUserNotFound},
		{"unknown", http.StatusInternalServerError, "pw", model.ErrCodeUnknownAuth},
	}

	const submitted = "  Epi@example.com "
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAuthenticator{
				loginFn: func(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
					return nil, &backend.StatusError{Endpoint: "login", StatusCode: tt.status}
				},
			}
			s := newTestService(a, nil)

			_, err := s.Login(context.Background(), model.Credentials{Email: submitted, Password: tt.password})

			f := assertFailure(t, err, tt.wantCode)
			if f.Email != submitted {
				t.Errorf("Email = %q, want submitted value %q", f.Email, submitted)
			}
			if a.calls > 0 && a.gotCred.Email != "Epi@example.com" {
				t.Errorf("backend email = %q, want trimmed", a.gotCred.Email)
			}
		})
	}
}
