// Package session はセッションCookieペア（session_id / session_user）の
// 発行・破棄と、Cookieからのリクエスト単位の認証状態の復元を提供する。
//
// session_idはベアラートークンを保持するHttpOnly Cookie、
// session_userはUI表示用にユーザーレコードのJSONを保持するCookieである。
// 2つは常に同じ属性・同じ有効期間で同時に書き込まれる。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/casewatch/internal/model"
)

const (
	// IDCookieName はベアラートークンを保持するCookieの名前。
	IDCookieName = "session_id"
	// UserCookieName はユーザーレコードのJSONを保持するCookieの名前。
	UserCookieName = "session_user"
)

// HydrationResult はCookieからの復元結果の分類。
type HydrationResult string

const (
	// HydrationAuthenticated は両Cookieが揃い、ユーザーを復元できたことを示す。
	HydrationAuthenticated HydrationResult = "authenticated"
	// HydrationAnonymous はどちらかのCookieが存在しないことを示す。
	HydrationAnonymous HydrationResult = "anonymous"
	// HydrationCorrupt はsession_userが壊れていたため未認証として扱ったことを示す。
	HydrationCorrupt HydrationResult = "corrupt"
)

// ErrCorruptSessionCookie はsession_user Cookieを解釈できなかったことを示す。
var ErrCorruptSessionCookie = errors.New("corrupt session cookie")

// Identity はリクエスト単位で復元される認証状態。
// リクエストの処理中だけ存在し、リクエスト間で共有しない。
type Identity struct {
	User  *model.User
	Token string
}

// Authenticated はユーザーが復元されているかを返す。
func (i Identity) Authenticated() bool {
	return i.User != nil
}

// HasSession はユーザーとトークンの両方が揃っているかを返す。
// リソース単位のページでの厳格なチェックに使用する。
func (i Identity) HasSession() bool {
	return i.User != nil && i.Token != ""
}

// Hydrate はリクエストのCookieから認証状態を復元する。
//
// 両方のCookieが存在し、session_userが正しいユーザーレコードとして
// 解釈できた場合のみ認証済みのIdentityを返す。
// session_userが壊れている場合はトークンが存在しても未認証として扱い、
// ErrCorruptSessionCookieをラップしたエラーを返す（ログ出力は呼び出し元が行う）。
//
// ネットワーク呼び出しやトークンの検証は行わない。
// 同じCookieに対しては常に同じ結果を返す。
func Hydrate(r *http.Request) (Identity, HydrationResult, error) {
	token := cookieValue(r, IDCookieName)
	rawUser := cookieValue(r, UserCookieName)

	if token == "" || rawUser == "" {
		return Identity{}, HydrationAnonymous, nil
	}

	user, err := decodeUser(rawUser)
	if err != nil {
		return Identity{}, HydrationCorrupt, fmt.Errorf("%w: %v", ErrCorruptSessionCookie, err)
	}

	return Identity{User: user, Token: token}, HydrationAuthenticated, nil
}

// cookieValue は指定した名前のCookie値を返す。存在しない場合は空文字を返す。
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// encodeUser はユーザーレコードをCookie値に変換する。
// JSONをURIコンポーネントとしてエスケープし、Cookieで使えない文字を含まないようにする。
func encodeUser(user *model.User) (string, error) {
	b, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user: %w", err)
	}
	return url.PathEscape(string(b)), nil
}

// decodeUser はCookie値からユーザーレコードを復元する。
func decodeUser(raw string) (*model.User, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape user cookie: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(decoded), &user); err != nil {
		return nil, fmt.Errorf("failed to parse user cookie: %w", err)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}
