package security

import (
	"net/url"
	"strings"
)

// SafeRedirectPath はログイン後の遷移先として使えるサイト内の相対パスかを検証し、
// 使える場合はその値を、そうでない場合はfallbackを返す。
//
// 拒否する値:
//   - 空文字、"/"で始まらない値
//   - "//"や"/\"で始まる値（プロトコル相対URLとして別ホストに解釈される）
//   - バックスラッシュや制御文字を含む値
//   - スキームまたはホストを持つ値
func SafeRedirectPath(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return fallback
	}
	if strings.HasPrefix(raw, "//") || strings.ContainsRune(raw, '\\') {
		return fallback
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] == 0x7f {
			return fallback
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	// エスケープを解いた結果が別ホストを指すパスも拒否する
	if strings.HasPrefix(u.Path, "//") {
		return fallback
	}
	return raw
}
