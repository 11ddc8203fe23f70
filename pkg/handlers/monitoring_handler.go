package handlers

import (
	"net/http"

	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// monitoringPeriods 集計期間と時間数の対応
var monitoringPeriods = map[string]int{
	"1h":  1,
	"24h": 24,
	"7d":  24 * 7,
}

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

// GetLogs はコンソールとERP API呼び出しの集計済みログを返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	period := c.DefaultQuery("period", "24h")
	hours, ok := monitoringPeriods[period]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "period must be one of 1h, 24h, 7d"})
		return
	}

	c.JSON(http.StatusOK, h.Service.GetDashboardData(hours))
}
