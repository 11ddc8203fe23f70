//go:build ignore

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	config "erp-admin-console/configs"
	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"

	"github.com/joho/godotenv"
)

// サンプル商品
var sampleProducts = []models.ProductPayload{
	{Name: "Widget", Description: "Standard widget", Price: 9.99, Quantity: 120},
	{Name: "Gadget", Description: "Pocket gadget", Price: 24.5, Quantity: 40},
	{Name: "Gizmo", Description: "Deluxe gizmo", Price: 149, Quantity: 8},
}

func main() {
	log.Println("🚀 サンプル商品の登録を開始します...")

	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	client := apiclient.NewClient(cfg.APIBaseURL, cfg.NewLogger(), apiclient.WithTimeout(cfg.APITimeout))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, skipped := 0, 0
	for _, p := range sampleProducts {
		product, err := client.CreateProduct(ctx, p)
		var failure *apiclient.Failure
		switch {
		case errors.As(err, &failure) && failure.Status == http.StatusConflict:
			log.Printf("⏭️  既に存在します: %s", p.Name)
			skipped++
		case err != nil:
			log.Fatalf("❌ 登録に失敗: %s: %v", p.Name, apiclient.AsFailure(err).Detail())
		default:
			log.Printf("✅ 登録しました: %s (id=%d)", product.Name, product.ID)
			created++
		}
	}

	log.Printf("🎉 完了: 登録 %d件, スキップ %d件", created, skipped)
}
