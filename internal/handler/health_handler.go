package handler

import (
	"net/http"

	"github.com/hitoshi/casewatch/internal/middleware"
)

// Health はプロセスの死活を返す。
// GET /health
// バックエンドの状態は確認しない。
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
