// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, report, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingEmail       = "MISSING_EMAIL"
	ErrCodeMissingPassword    = "MISSING_PASSWORD"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnknownAuth        = "UNKNOWN_AUTH_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeForbiddenOrigin    = "FORBIDDEN_ORIGIN"
	ErrCodeReportNotFound     = "REPORT_NOT_FOUND"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// LoginFailure はログインフォーム送信の失敗結果を表す。
// フォーム再表示用のフィールドフラグとして呼び出し元に返し、panicにはしない。
// パスワードは決して保持しない。
type LoginFailure struct {
	Code  string
	Email string // フォーム再入力用。MissingEmail以外で設定する
	Cause error  // ログ用の内部原因。ユーザーには表示しない
}

// Error はerrorインターフェースを実装する。
func (f *LoginFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("login failed [%s]: %v", f.Code, f.Cause)
	}
	return fmt.Sprintf("login failed [%s]", f.Code)
}

// Unwrap は内部原因を返す。
func (f *LoginFailure) Unwrap() error {
	return f.Cause
}

// APIError はユーザー向けのエラー表現に変換する。
func (f *LoginFailure) APIError() *APIError {
	switch f.Code {
	case ErrCodeMissingEmail:
		return &APIError{
			Code:     ErrCodeMissingEmail,
			Message:  "メールアドレスが入力されていません。",
			Category: "validation",
			Action:   "メールアドレスを入力してください。",
		}
	case ErrCodeMissingPassword:
		return &APIError{
			Code:     ErrCodeMissingPassword,
			Message:  "パスワードが入力されていません。",
			Category: "validation",
			Action:   "パスワードを入力してください。",
		}
	case ErrCodeInvalidCredentials:
		return &APIError{
			Code:     ErrCodeInvalidCredentials,
			Message:  "メールアドレスまたはパスワードが正しくありません。",
			Category: "auth",
			Action:   "入力内容を確認して再度ログインしてください。",
		}
	case ErrCodeUserNotFound:
		return &APIError{
			Code:     ErrCodeUserNotFound,
			Message:  "ユーザーが見つかりません。",
			Category: "auth",
			Action:   "登録済みのメールアドレスか確認してください。",
		}
	default:
		return &APIError{
			Code:     ErrCodeUnknownAuth,
			Message:  "ログイン処理中にエラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
}

// NewMissingEmailFailure はメールアドレス未入力の失敗を生成する。
func NewMissingEmailFailure() *LoginFailure {
	return &LoginFailure{Code: ErrCodeMissingEmail}
}

// NewMissingPasswordFailure はパスワード未入力の失敗を生成する。
func NewMissingPasswordFailure(email string) *LoginFailure {
	return &LoginFailure{Code: ErrCodeMissingPassword, Email: email}
}

// NewInvalidCredentialsFailure は認証情報不一致の失敗を生成する。
func NewInvalidCredentialsFailure(email string) *LoginFailure {
	return &LoginFailure{Code: ErrCodeInvalidCredentials, Email: email}
}

// NewUserNotFoundFailure はユーザー未登録の失敗を生成する。
func NewUserNotFoundFailure(email string) *LoginFailure {
	return &LoginFailure{Code: ErrCodeUserNotFound, Email: email}
}

// NewUnknownAuthFailure は分類できない失敗を生成する。
func NewUnknownAuthFailure(email string, cause error) *LoginFailure {
	return &LoginFailure{Code: ErrCodeUnknownAuth, Email: email, Cause: cause}
}

// NewUnauthorizedError は認証が必要な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
