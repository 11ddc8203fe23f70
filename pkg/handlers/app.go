package handlers

import (
	"context"
	"log/slog"
	"time"

	config "erp-admin-console/configs"
	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// NewApp はサービスを初期化し、初回ロード後のルーターを返します。
// 初回ロードに失敗してもルーターは返す（/api/v1/refresh で再試行できる）。
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	// サービスの初期化
	monitoringService := services.NewMonitoringService(cfg.Location())
	client := apiclient.NewClient(
		cfg.APIBaseURL,
		logger,
		apiclient.WithTransport(monitoringService.Transport(nil)),
		apiclient.WithTimeout(cfg.APITimeout),
	)
	session := services.NewSession(client, cfg.InferenceTimeout, logger)

	mountCtx, cancel := context.WithTimeout(ctx, cfg.APITimeout+5*time.Second)
	defer cancel()
	if err := session.Mount(mountCtx); err != nil {
		logger.Warn("初回ロードに失敗しました。/api/v1/refresh で再試行できます", slog.String("error", err.Error()))
	}

	return NewRouter(session, monitoringService, cfg.Location(), logger)
}
