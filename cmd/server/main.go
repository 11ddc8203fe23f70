package main

import (
	"context"
	"log"
	"log/slog"

	config "erp-admin-console/configs"
	"erp-admin-console/pkg/handlers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	logger := cfg.NewLogger()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := handlers.NewApp(context.Background(), cfg, logger)

	logger.Info("Starting ERP admin console", slog.String("port", cfg.Port), slog.String("erp_api", cfg.APIBaseURL))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
