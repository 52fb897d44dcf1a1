package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedValue は秘匿属性の値を置き換える文字列。
const redactedValue = "[REDACTED]"

// sensitiveKeys はログに値を出力してはならない属性キー。
// パスワードとベアラートークンはどの経路でもログに残さない。
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"access_token":  {},
	"session_id":    {},
	"authorization": {},
}

// ParseLevel は文字列からログレベルを解釈する。
// 不明な値の場合はInfoを返す。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 秘匿属性（password, token等）の値は出力前に伏せ字へ置き換える。
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSensitive,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w, level))
}

func redactSensitive(groups []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redactedValue)
	}
	return a
}
