package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/casewatch/internal/backend"
	"github.com/hitoshi/casewatch/internal/middleware"
	"github.com/hitoshi/casewatch/internal/model"
	"github.com/hitoshi/casewatch/internal/security"
)

// ReportFetcher はバックエンドから症例報告を取得する。
type ReportFetcher interface {
	GetReport(ctx context.Context, token, id string) (*model.Report, error)
}

// DashboardHandler はダッシュボード配下のページデータを返すハンドラー。
// ルートガードを通過したリクエストのみを受け付ける。
type DashboardHandler struct {
	reports   ReportFetcher
	cookies   SessionCookies
	guard     *middleware.RouteGuard
	sanitizer security.DisplaySanitizerService
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(reports ReportFetcher, cookies SessionCookies, guard *middleware.RouteGuard, sanitizer security.DisplaySanitizerService) *DashboardHandler {
	return &DashboardHandler{
		reports:   reports,
		cookies:   cookies,
		guard:     guard,
		sanitizer: sanitizer,
	}
}

// dashboardPageData はダッシュボードのページデータ。
// トークンは含めない。
type dashboardPageData struct {
	Login bool        `json:"login"`
	User  *model.User `json:"user"`
}

// reportPageData は症例報告編集ページのページデータ。
type reportPageData struct {
	ID     string        `json:"id"`
	Report *model.Report `json:"report"`
}

// Dashboard はダッシュボードのページデータを返す。
// GET /dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	middleware.WriteJSON(w, http.StatusOK, dashboardPageData{
		Login: identity.Authenticated(),
		User:  h.sanitizer.SanitizeUser(identity.User),
	})
}

// NewReport は症例報告編集ページのページデータを返す。
// GET /dashboard/newreport/{id}
//
// ユーザーとトークンの両方を要求する。バックエンドが401を返した場合は
// トークンが失効しているため、Cookieペアを破棄してログインへリダイレクトする。
// それ以外の取得失敗ではreportをnullとして返す。
func (h *DashboardHandler) NewReport(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if rd := h.guard.RequireSession(identity, r); rd != nil {
		rd.Write(w)
		return
	}

	id := chi.URLParam(r, "id")
	if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeReportNotFound,
			Message:  "指定された報告が見つかりません。",
			Category: "validation",
			Action:   "報告一覧から選択し直してください。",
		})
		return
	}

	report, err := h.reports.GetReport(r.Context(), identity.Token, id)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			slog.Info("backend rejected session token",
				slog.Int64("user_id", identity.User.ID),
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			)
			h.cookies.Clear(w)
			h.guard.LoginRedirect(r).Write(w)
			return
		}

		slog.Warn("failed to load report",
			slog.String("report_id", id),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		report = nil
	}

	middleware.WriteJSON(w, http.StatusOK, reportPageData{
		ID:     id,
		Report: report,
	})
}
