package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler は売上チャート用の集計と表計算ファイルの出力を扱います。
type DashboardHandler struct {
	session  *services.Session
	location *time.Location
	log      *slog.Logger
}

// NewDashboardHandler は新しいDashboardHandlerを生成します。
func NewDashboardHandler(session *services.Session, location *time.Location, logger *slog.Logger) *DashboardHandler {
	if location == nil {
		location = time.Local
	}
	return &DashboardHandler{session: session, location: location, log: logger.With("component", "dashboard_handler")}
}

// ProductSummaryRow 商品別チャートの1行
type ProductSummaryRow struct {
	ProductName  string  `json:"product_name"`
	TotalRevenue float64 `json:"total_revenue"`
	QuantitySold int     `json:"quantity_sold"`
}

// PeriodSummaryRow 期間別チャートの1行
type PeriodSummaryRow struct {
	Period       string  `json:"period"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	TotalRevenue float64 `json:"total_revenue"`
	QuantitySold int     `json:"quantity_sold"`
}

// GetProductSummary 商品別の売上集計を返す
func (h *DashboardHandler) GetProductSummary(c *gin.Context) {
	summaries := services.AggregateByProduct(h.session.Store.Sales())

	rows := make([]ProductSummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, ProductSummaryRow{
			ProductName:  s.ProductName,
			TotalRevenue: s.TotalRevenue.InexactFloat64(),
			QuantitySold: s.QuantitySold,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rows,
		"loaded":  h.session.Store.Loaded(services.CollectionSales),
	})
}

// GetTrend 期間別の売上推移を返す
func (h *DashboardHandler) GetTrend(c *gin.Context) {
	granularity, err := services.ParseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	summaries := services.AggregateByPeriod(h.session.Store.Sales(), granularity)
	rows := make([]PeriodSummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, PeriodSummaryRow{
			Period:       s.Period,
			StartDate:    s.StartDate,
			EndDate:      s.EndDate,
			TotalRevenue: s.TotalRevenue.InexactFloat64(),
			QuantitySold: s.QuantitySold,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"granularity": granularity,
		"data":        rows,
	})
}

// Export 商品・売上・集計をxlsxで出力
func (h *DashboardHandler) Export(c *gin.Context) {
	granularity, err := services.ParseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	f, err := services.ExportWorkbook(h.session.Store.Products(), h.session.Store.Sales(), granularity, h.location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "ファイルの作成に失敗しました: " + err.Error()})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			h.log.Warn("ファイルのクローズに失敗", slog.String("error", err.Error()))
		}
	}()

	filename := fmt.Sprintf("erp-dashboard-%s.xlsx", time.Now().In(h.location).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.Warn("ファイルの書き込みに失敗", slog.String("error", err.Error()))
	}
}
