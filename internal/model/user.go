// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role は報告者の権限区分を表す。
type Role string

const (
	// RoleJunior は一般の報告者。
	RoleJunior Role = "Junior"
	// RoleSenior はレビュー権限を持つ報告者。
	RoleSenior Role = "Senior"
)

// Valid は既知のロールかどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleJunior, RoleSenior:
		return true
	default:
		return false
	}
}

// User はバックエンドが返すユーザーレコードを表す。
// session_user Cookieに保存された後はクライアントが書き換え可能なため、
// 表示用データとしてのみ扱い、認可判断には使用しない。
type User struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
	Role      Role    `json:"role"`
}

// Validate はセッションCookieとして受け入れ可能な形かどうかを検証する。
func (u *User) Validate() error {
	if u == nil {
		return errors.New("user is nil")
	}
	if u.ID <= 0 {
		return fmt.Errorf("invalid user id: %d", u.ID)
	}
	if u.Email == "" {
		return errors.New("user email is empty")
	}
	if u.CreatedAt == "" {
		return errors.New("user created_at is empty")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("unknown user role: %q", u.Role)
	}
	return nil
}

// Credentials はログインフォームから受け取る認証情報。
// 1回のログイン送信の間だけ存在し、永続化もログ出力もしない。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult はバックエンドのログイン成功レスポンスを表す。
// access_tokenの有効性と期限はバックエンドが管理し、ここでは解釈しない。
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

// UnmarshalJSON はuserフィールドがオブジェクトでも、
// オブジェクトをJSON文字列化した値でも受け付ける。
// バックエンドはuserをJSON文字列として返す実装になっている。
func (a *AuthResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessToken string          `json:"access_token"`
		TokenType   string          `json:"token_type"`
		User        json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.AccessToken = raw.AccessToken
	a.TokenType = raw.TokenType
	a.User = nil

	if len(raw.User) == 0 || string(raw.User) == "null" {
		return nil
	}

	userJSON := []byte(raw.User)
	if raw.User[0] == '"' {
		var s string
		if err := json.Unmarshal(raw.User, &s); err != nil {
			return fmt.Errorf("failed to decode user string: %w", err)
		}
		userJSON = []byte(s)
	}

	var user User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return fmt.Errorf("failed to decode user: %w", err)
	}
	a.User = &user
	return nil
}

// Validate はセッション発行に必要な項目が揃っているかを検証する。
func (a *AuthResult) Validate() error {
	if a.AccessToken == "" {
		return errors.New("access token is empty")
	}
	if err := a.User.Validate(); err != nil {
		return fmt.Errorf("invalid user in auth result: %w", err)
	}
	return nil
}
