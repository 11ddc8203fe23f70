package services

import (
	"fmt"
	"strings"
	"time"

	"erp-admin-console/pkg/models"

	"github.com/shopspring/decimal"
)

// Granularity 期間集計の粒度
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity 文字列から粒度を取得（空ならweekly）
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityWeekly, nil
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return g, nil
	}
	return "", fmt.Errorf("invalid granularity %q (use daily, weekly or monthly)", s)
}

// AggregateByProduct groups records by product_name (case-sensitive, no
// normalization) and sums revenue and quantity. Rows follow the order in
// which each name first appears in records. Revenue is summed exactly.
func AggregateByProduct(records []models.SalesRecord) []models.ProductSummary {
	groups := make(map[string]*models.ProductSummary)
	order := make([]string, 0)

	for _, r := range records {
		g, ok := groups[r.ProductName]
		if !ok {
			g = &models.ProductSummary{ProductName: r.ProductName}
			groups[r.ProductName] = g
			order = append(order, r.ProductName)
		}
		g.TotalRevenue = g.TotalRevenue.Add(decimal.NewFromFloat(r.TotalRevenue))
		g.QuantitySold += r.QuantitySold
	}

	out := make([]models.ProductSummary, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	return out
}

// AggregateByPeriod buckets records into daily, weekly (ISO week, Monday to
// Sunday) or monthly periods in first-seen order. Records whose sales_date
// cannot be parsed are skipped.
func AggregateByPeriod(records []models.SalesRecord, granularity Granularity) []models.PeriodSummary {
	groups := make(map[string]*models.PeriodSummary)
	order := make([]string, 0)

	for _, r := range records {
		t, ok := ParseDate(r.SalesDate)
		if !ok {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

		var key string
		var start, end time.Time
		switch granularity {
		case GranularityDaily:
			start, end = day, day
			key = day.Format("2006-01-02")
		case GranularityWeekly:
			weekday := int(day.Weekday())
			if weekday == 0 {
				weekday = 7
			}
			start = day.AddDate(0, 0, -(weekday - 1))
			end = start.AddDate(0, 0, 6)
			y, w := start.ISOWeek()
			key = fmt.Sprintf("%04d-W%02d", y, w)
		case GranularityMonthly:
			start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, -1)
			key = start.Format("2006-01")
		default:
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &models.PeriodSummary{
				Period:    key,
				StartDate: start.Format("2006-01-02"),
				EndDate:   end.Format("2006-01-02"),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.TotalRevenue = g.TotalRevenue.Add(decimal.NewFromFloat(r.TotalRevenue))
		g.QuantitySold += r.QuantitySold
	}

	out := make([]models.PeriodSummary, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

// dateLayouts 受け付ける日付フォーマット（サーバーのisoformat()を含む）
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-style date or timestamp. Values without a zone are read as UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayDate 表示用に日時を整形（解析できない場合は元の文字列を返す）
// The stored value is never rewritten; this runs at render time only.
func DisplayDate(raw string, loc *time.Location) string {
	t, ok := ParseDate(raw)
	if !ok {
		return raw
	}
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.Format("2006-01-02")
	}
	return t.In(loc).Format("2006-01-02 15:04")
}
