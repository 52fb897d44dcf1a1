// Package auth はログインフォームの認証情報をバックエンドに送信し、
// 結果をフォーム向けの型付きの結果に変換する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/casewatch/internal/backend"
	"github.com/hitoshi/casewatch/internal/model"
)

// OutcomeSuccess はログイン成功を表すメトリクス用のコード。
const OutcomeSuccess = "SUCCESS"

// Authenticator はバックエンドのログインエンドポイントを表すインターフェース。
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
}

// OutcomeRecorder はログイン結果を記録する。
type OutcomeRecorder interface {
	RecordLoginOutcome(code string)
}

// Service はログイン送信のビジネスロジックを提供する。
type Service struct {
	backend Authenticator
	metrics OutcomeRecorder
	logger  *slog.Logger
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(backend Authenticator, metrics OutcomeRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		metrics: metrics,
		logger:  logger,
	}
}

// Login は認証情報を検証してバックエンドに送信する。
//
// 失敗時は常に*model.LoginFailureを返す。
// メールアドレスまたはパスワードが空の場合はバックエンドを呼び出さない。
// 成功時に返すAuthResultはセッション発行に必要な項目が揃っていることを検証済み。
func (s *Service) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	// バックエンドには前後の空白を除いたメールアドレスを送る。
	// 失敗時のフォーム再表示には送信されたままの値を返す。
	email := strings.TrimSpace(creds.Email)

	if email == "" {
		return nil, s.fail(model.NewMissingEmailFailure())
	}
	if creds.Password == "" {
		return nil, s.fail(model.NewMissingPasswordFailure(creds.Email))
	}

	res, err := s.backend.Login(ctx, model.Credentials{Email: email, Password: creds.Password})
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusUnauthorized:
				return nil, s.fail(model.NewInvalidCredentialsFailure(creds.Email))
			case http.StatusNotFound:
				return nil, s.fail(model.NewUserNotFoundFailure(creds.Email))
			}
		}
		return nil, s.fail(model.NewUnknownAuthFailure(creds.Email, err))
	}

	if err := res.Validate(); err != nil {
		return nil, s.fail(model.NewUnknownAuthFailure(creds.Email, err))
	}

	s.record(OutcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("user_id", res.User.ID))
	return res, nil
}

// fail はログイン失敗を記録して返す。
func (s *Service) fail(f *model.LoginFailure) *model.LoginFailure {
	s.record(f.Code)
	if f.Cause != nil {
		s.logger.Warn("login failed",
			slog.String("code", f.Code),
			slog.String("error", f.Cause.Error()),
		)
	} else {
		s.logger.Info("login rejected", slog.String("code", f.Code))
	}
	return f
}

func (s *Service) record(code string) {
	if s.metrics != nil {
		s.metrics.RecordLoginOutcome(code)
	}
}
