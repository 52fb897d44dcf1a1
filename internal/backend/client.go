// Package backend はバックエンドREST APIのクライアントを提供する。
// ドメインデータ（報告、患者、疾病、ユーザー）はすべてバックエンドが所有し、
// このパッケージはサーバー間通信の呼び出しとレスポンスの解釈のみを行う。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/casewatch/internal/model"
)

const (
	loginPath   = "/api/auth/login"
	reportsPath = "/api/reports/"

	// maxResponseSize はレスポンスボディの読み取り上限。
	maxResponseSize = 1 << 20
)

// StatusError はバックエンドが2xx以外のステータスを返したことを示す。
type StatusError struct {
	Endpoint   string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d", e.Endpoint, e.StatusCode)
}

// LatencyRecorder はバックエンド呼び出しのレイテンシを記録する。
type LatencyRecorder interface {
	RecordBackendLatency(endpoint string, statusCode int, duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
// タイムアウトはhttpClient側で設定する。リトライは行わない。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    LatencyRecorder
}

// NewClient はClientを生成する。metricsはnilでもよい。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, metrics LatencyRecorder) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Login はメールアドレスとパスワードでバックエンドに認証を要求する。
// 2xx以外のステータスは*StatusErrorとして返す。
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "login")
	if err != nil {
		return nil, err
	}

	var result model.AuthResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	return &result, nil
}

// GetReport はベアラートークンを付与して症例報告を1件取得する。
func (c *Client) GetReport(ctx context.Context, token, id string) (*model.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+reportsPath+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req, "get_report")
	if err != nil {
		return nil, err
	}

	var report model.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report response: %w", err)
	}

	return &report, nil
}

// do はリクエストを実行し、2xxの場合のみレスポンスボディを返す。
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordLatency(endpoint, 0, time.Since(start))
		c.logger.Error("backend request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("backend %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.recordLatency(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	return body, nil
}

func (c *Client) recordLatency(endpoint string, statusCode int, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordBackendLatency(endpoint, statusCode, d)
	}
}
