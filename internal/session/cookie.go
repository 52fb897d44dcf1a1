package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/casewatch/internal/model"
)

const (
	// MaxAge はセッションCookieの有効期間（秒）。ログイン成功時に毎回1時間で発行し直す。
	MaxAge = 3600

	// maxCookieValueLen はブラウザが保持できるCookie値の安全な上限。
	maxCookieValueLen = 4000
)

var (
	// ErrInvalidToken はトークンがCookie値として使えない文字を含むことを示す。
	ErrInvalidToken = errors.New("access token is not a valid cookie value")
	// ErrCookieTooLarge はエンコード後のユーザーCookieが大きすぎることを示す。
	ErrCookieTooLarge = errors.New("encoded session cookie is too large")
)

// CookieOptions はセッションCookieの共通属性。
type CookieOptions struct {
	Secure bool   // 本番環境でのみtrue
	Domain string // 空の場合はホスト限定Cookie
}

// CookieWriter はセッションCookieペアの発行と破棄を行う。
type CookieWriter struct {
	opts CookieOptions
}

// NewCookieWriter はCookieWriterを生成する。
func NewCookieWriter(opts CookieOptions) *CookieWriter {
	return &CookieWriter{opts: opts}
}

// Issue はログイン結果からセッションCookieペアを書き込む。
//
// 検証とエンコードをすべて終えてから2つのCookieを書き込むため、
// エラー時にはどちらのCookieも書き込まれない。
func (cw *CookieWriter) Issue(w http.ResponseWriter, res *model.AuthResult) error {
	if res == nil {
		return errors.New("auth result is nil")
	}
	if err := res.Validate(); err != nil {
		return err
	}
	if !isValidCookieValue(res.AccessToken) {
		return ErrInvalidToken
	}
	if len(res.AccessToken) > maxCookieValueLen {
		return fmt.Errorf("%w: %s", ErrCookieTooLarge, IDCookieName)
	}

	userValue, err := encodeUser(res.User)
	if err != nil {
		return err
	}
	if len(userValue) > maxCookieValueLen {
		return fmt.Errorf("%w: %s", ErrCookieTooLarge, UserCookieName)
	}

	// トークンはスクリプトから読めないようHttpOnlyにする
	setCookie(w, cw.cookie(IDCookieName, res.AccessToken, MaxAge, true))
	// ユーザー情報はUI表示のためスクリプトから読み取り可能にする
	setCookie(w, cw.cookie(UserCookieName, userValue, MaxAge, false))
	return nil
}

// Clear はセッションCookieペアを削除する。
// 新しいログイン試行の前とログアウト時に呼び出す。
func (cw *CookieWriter) Clear(w http.ResponseWriter) {
	setCookie(w, cw.cookie(IDCookieName, "", -1, true))
	setCookie(w, cw.cookie(UserCookieName, "", -1, false))
}

func (cw *CookieWriter) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cw.opts.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   cw.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setCookie は同名のSet-Cookieヘッダーが既にあれば置き換えてからCookieを追加する。
// 削除→発行を同一レスポンスで行っても、Cookieごとにヘッダーは1つだけになる。
func setCookie(w http.ResponseWriter, c *http.Cookie) {
	v := c.String()
	if v == "" {
		return
	}

	h := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, existing := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(existing, prefix) {
			kept = append(kept, existing)
		}
	}
	h.Del("Set-Cookie")
	for _, existing := range kept {
		h.Add("Set-Cookie", existing)
	}
	h.Add("Set-Cookie", v)
}

// isValidCookieValue はRFC 6265のcookie-octetのみで構成されているかを判定する。
func isValidCookieValue(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b < 0x21 || b > 0x7e || b == '"' || b == ',' || b == ';' || b == '\\' {
			return false
		}
	}
	return true
}
