package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// StatusRecorder はHTTPステータスコードを記録する。
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Flush はリバースプロキシのストリーミング応答のために委譲する。
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap はhttp.ResponseControllerが元のResponseWriterに到達できるようにする。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、request_id、user_id（認証済みの場合）を含む。
// クエリ文字列はトークンを含み得るため出力しない。
// recorderがnilでない場合はステータスコードも記録する。
func NewLoggingMiddleware(logger *slog.Logger, recorder StatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// セッションミドルウェアが後段で注入するIdentityを受け取るため、
			// 後段でコンテキストが差し替えられても参照できる箱を渡す
			holder := &identityHolder{}
			next.ServeHTTP(rec, r.WithContext(contextWithIdentityHolder(r.Context(), holder)))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			if id := RequestIDFromContext(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			// 認証済みの場合はユーザーIDを追加
			if holder.user != 0 {
				attrs = append(attrs, slog.String("user_id", strconv.FormatInt(holder.user, 10)))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			if recorder != nil {
				recorder.RecordHTTPStatus(rec.statusCode)
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
