package model

import (
	"encoding/json"
	"testing"
)

const sampleUserJSON = `{"id":7,"email":"nurse@example.com","full_name":"Aki Tanaka","is_active":true,"created_at":"2025-01-02T03:04:05","updated_at":null,"role":"Senior"}`

func TestAuthResult_UnmarshalJSON_UserObject(t *testing.T) {
	body := `{"access_token":"tok-1","token_type":"bearer","user":` + sampleUserJSON + `}`

	var res AuthResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %q, want %q", res.AccessToken, "tok-1")
	}
	if res.TokenType != "bearer" {
		t.Errorf("TokenType = %q, want %q", res.TokenType, "bearer")
	}
	if res.User == nil {
		t.Fatal("expected user to be decoded")
	}
	if res.User.ID != 7 || res.User.Email != "nurse@example.com" || res.User.Role != RoleSenior {
		t.Errorf("User = %+v, unexpected contents", res.User)
	}
	if res.User.FullName == nil || *res.User.FullName != "Aki Tanaka" {
		t.Errorf("FullName = %v, want %q", res.User.FullName, "Aki Tanaka")
	}
	if res.User.UpdatedAt != nil {
		t.Errorf("UpdatedAt = %v, want nil", res.User.UpdatedAt)
	}
}

func TestAuthResult_UnmarshalJSON_UserAsJSONString(t *testing.T) {
	// バックエンドはuserをJSON文字列で返す
	quoted, err := json.Marshal(sampleUserJSON)
	if err != nil {
		t.Fatalf("failed to quote user: %v", err)
	}
	body := `{"access_token":"tok-2","token_type":"bearer","user":` + string(quoted) + `}`

	var res AuthResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.User == nil {
		t.Fatal("expected user to be decoded from string")
	}
	if res.User.ID != 7 {
		t.Errorf("User.ID = %d, want 7", res.User.ID)
	}
	if err := res.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestAuthResult_UnmarshalJSON_MissingUser(t *testing.T) {
	var res AuthResult
	if err := json.Unmarshal([]byte(`{"access_token":"tok","token_type":"bearer"}`), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User != nil {
		t.Errorf("User = %+v, want nil", res.User)
	}
	if err := res.Validate(); err == nil {
		t.Error("expected Validate to fail without user")
	}
}

func TestAuthResult_UnmarshalJSON_BrokenUserString(t *testing.T) {
	var res AuthResult
	err := json.Unmarshal([]byte(`{"access_token":"tok","user":"{\"id\":1,"}`), &res)
	if err == nil {
		t.Error("expected error for truncated user string")
	}
}

func TestAuthResult_Validate_EmptyToken(t *testing.T) {
	var user User
	if err := json.Unmarshal([]byte(sampleUserJSON), &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	res := AuthResult{User: &user}
	if err := res.Validate(); err == nil {
		t.Error("expected Validate to fail with empty token")
	}
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		wantErr bool
	}{
		{"valid", &User{ID: 1, Email: "a@example.com", CreatedAt: "2025-01-01", Role: RoleJunior}, false},
		{"nil", nil, true},
		{"zero id", &User{Email: "a@example.com", CreatedAt: "2025-01-01", Role: RoleJunior}, true},
		{"empty email", &User{ID: 1, CreatedAt: "2025-01-01", Role: RoleJunior}, true},
		{"empty created_at", &User{ID: 1, Email: "a@example.com", Role: RoleJunior}, true},
		{"unknown role", &User{ID: 1, Email: "a@example.com", CreatedAt: "2025-01-01", Role: "Admin"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginFailure_APIError_MapsCodes(t *testing.T) {
	tests := []struct {
		failure  *LoginFailure
		wantCode string
	}{
		{NewMissingEmailFailure(), ErrCodeMissingEmail},
		{NewMissingPasswordFailure("a@example.com"), ErrCodeMissingPassword},
		{NewInvalidCredentialsFailure("a@example.com"), ErrCodeInvalidCredentials},
		{NewUserNotFoundFailure("a@example.com"), ErrCodeUserNotFound},
		{NewUnknownAuthFailure("a@example.com", nil), ErrCodeUnknownAuth},
	}

	for _, tt := range tests {
		apiErr := tt.failure.APIError()
		if apiErr.Code != tt.wantCode {
			t.Errorf("APIError().Code = %q, want %q", apiErr.Code, tt.wantCode)
		}
		if apiErr.Message == "" || apiErr.Action == "" {
			t.Errorf("APIError() for %q should have message and action", tt.wantCode)
		}
	}
}
