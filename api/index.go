package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "erp-admin-console/configs"
	"erp-admin-console/pkg/handlers"

	"github.com/gin-gonic/gin"
)

var (
	app     *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		// 環境変数はVercelの設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg, err := config.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		logger := cfg.NewLogger()
		logger.Info("🟢 [setupApp] Initializing console", "erp_api", cfg.APIBaseURL)
		app = handlers.NewApp(context.Background(), cfg, logger)
	})
	return app, initErr
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	app, err := setupApp()
	if err != nil {
		log.Printf("❌ [Handler] 初期化に失敗: %v", err)
		http.Error(w, "console is not configured: "+err.Error(), http.StatusInternalServerError)
		return
	}
	app.ServeHTTP(w, r)
}
