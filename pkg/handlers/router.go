package handlers

import (
	"log/slog"
	"time"

	"erp-admin-console/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter はコンソールのGinルーターを構築します。
func NewRouter(session *services.Session, monitoring *services.MonitoringService, location *time.Location, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// ミドルウェアの登録
	r.Use(monitoring.LoggingMiddleware())
	r.Use(cors.Default())

	consoleHandler := NewConsoleHandler(session, logger)
	dashboardHandler := NewDashboardHandler(session, location, logger)
	chatHandler := NewChatHandler(session, logger)
	eventsHandler := NewEventsHandler(session)
	monitoringHandler := NewMonitoringHandler(monitoring)
	healthHandler := NewHealthHandler(session)

	// ヘルスチェック・メトリクス
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(monitoring.Registry(), promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", consoleHandler.GetState)
		v1.POST("/refresh", consoleHandler.Refresh)
		v1.GET("/events", eventsHandler.Stream)

		// 商品API
		products := v1.Group("/products")
		{
			products.POST("", consoleHandler.CreateProduct)
			products.DELETE("/:id", consoleHandler.DeleteProduct)
			products.POST("/:id/edit", consoleHandler.BeginEdit)
		}

		// 編集中の下書き
		edit := v1.Group("/edit")
		{
			edit.PATCH("", consoleHandler.UpdateEditField)
			edit.DELETE("", consoleHandler.CancelEdit)
			edit.POST("/commit", consoleHandler.CommitEdit)
		}

		// ダッシュボード
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/products", dashboardHandler.GetProductSummary)
			dashboard.GET("/trend", dashboardHandler.GetTrend)
			dashboard.GET("/export", dashboardHandler.Export)
		}

		v1.POST("/chat", chatHandler.SubmitQuery)
		v1.PATCH("/chat", chatHandler.UpdateDraft)

		// モニタリングAPI
		monitoringGroup := v1.Group("/monitoring")
		{
			monitoringGroup.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}
