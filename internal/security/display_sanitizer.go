// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DisplaySanitizerService はsession_user Cookie由来のユーザー情報を
// ページデータに載せる前に無害化する。Cookieはクライアントから書き換え可能なため、
// 値は表示専用の信頼できないデータとして扱う。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/casewatch/internal/model"
)

// maxDisplayLen は表示用の文字列の最大文字数。
const maxDisplayLen = 256

// DisplaySanitizerService は表示用文字列のサニタイズ機能のインターフェースを定義する。
type DisplaySanitizerService interface {
	// Sanitize はすべてのHTMLタグを除去し、HTMLエスケープ済みのテキストを返す。
	// 前後の空白を除き、最大256文字に切り詰める。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string

	// SanitizeUser は表示用に無害化したユーザーのコピーを返す。
	// 元のユーザーは変更しない。nilにはnilを返す。
	SanitizeUser(u *model.User) *model.User
}

// displaySanitizer はDisplaySanitizerServiceの実装。
// bluemondayのStrictPolicyはスレッドセーフに共有できる。
type displaySanitizer struct {
	policy *bluemonday.Policy
}

// NewDisplaySanitizer はDisplaySanitizerServiceの新しいインスタンスを生成する。
// 表示名やメールアドレスにマークアップは不要なため、すべてのタグを拒否する。
func NewDisplaySanitizer() *displaySanitizer {
	return &displaySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はすべてのHTMLタグを除去したテキストを返す。
func (s *displaySanitizer) Sanitize(raw string) string {
	out := strings.TrimSpace(s.policy.Sanitize(raw))
	if r := []rune(out); len(r) > maxDisplayLen {
		out = string(r[:maxDisplayLen])
	}
	return out
}

// SanitizeUser は表示用に無害化したユーザーのコピーを返す。
func (s *displaySanitizer) SanitizeUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}

	cp := *u
	cp.Email = s.Sanitize(u.Email)
	if u.FullName != nil {
		name := s.Sanitize(*u.FullName)
		cp.FullName = &name
	}
	if u.UpdatedAt != nil {
		updated := *u.UpdatedAt
		cp.UpdatedAt = &updated
	}
	return &cp
}
