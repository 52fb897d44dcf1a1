package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/casewatch/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// LoginFormBody はログインフォームの再表示に使うフィールドフラグ。
// 入力されたメールアドレスは再表示のため返すが、パスワードは決して含めない。
type LoginFormBody struct {
	Email              string            `json:"email"`
	MissingEmail       bool              `json:"missing_email,omitempty"`
	MissingPassword    bool              `json:"missing_password,omitempty"`
	InvalidCredentials bool              `json:"invalid_credentials,omitempty"`
	UserNotFound       bool              `json:"user_not_found,omitempty"`
	UnknownError       bool              `json:"unknown_error,omitempty"`
	Error              ErrorResponseBody `json:"error"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteJSON(w, statusCode, toBody(apiErr))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteLoginFailure はログイン失敗をフォームのフィールドフラグとして書き込む。
func WriteLoginFailure(w http.ResponseWriter, f *model.LoginFailure) {
	body := LoginFormBody{
		Email: f.Email,
		Error: toBody(f.APIError()),
	}

	status := http.StatusBadGateway
	switch f.Code {
	case model.ErrCodeMissingEmail:
		body.MissingEmail = true
		status = http.StatusBadRequest
	case model.ErrCodeMissingPassword:
		body.MissingPassword = true
		status = http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		body.InvalidCredentials = true
		status = http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		body.UserNotFound = true
		status = http.StatusNotFound
	default:
		body.UnknownError = true
	}

	WriteJSON(w, status, body)
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func toBody(apiErr *model.APIError) ErrorResponseBody {
	return ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
}
