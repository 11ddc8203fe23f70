package handlers

import (
	"net/http"

	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// HealthHandler はヘルスチェックのハンドラです。
type HealthHandler struct {
	session *services.Session
}

// NewHealthHandler は新しいHealthHandlerを生成します。
func NewHealthHandler(session *services.Session) *HealthHandler {
	return &HealthHandler{session: session}
}

// HealthCheck は外部のヘルスチェッカーからのリクエストに応答します。
// 初回ロードの失敗はコンソールを停止させないため、常に200を返す。
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	loaded := make(map[string]bool, len(services.Collections))
	for _, coll := range services.Collections {
		loaded[string(coll)] = h.session.Store.Loaded(coll)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "loaded": loaded})
}
