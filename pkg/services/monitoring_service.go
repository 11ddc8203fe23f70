package services

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// maxLogEntries 保持するログの最大件数
const maxLogEntries = 5000

// Direction distinguishes console requests from calls made to the ERP API.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Direction    Direction     `json:"direction"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"` // 0 = transport error
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はコンソールとERP API呼び出しのモニタリング機能を提供します。
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(location *time.Location) *MonitoringService {
	if location == nil {
		location = time.Local
	}
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "erp_console",
		Name:      "requests_total",
		Help:      "Requests handled by the console and sent to the ERP API.",
	}, []string{"direction", "method", "path", "status_class"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "erp_console",
		Name:      "request_duration_seconds",
		Help:      "Request latency by direction and path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"direction", "method", "path"})
	reg.MustRegister(requests, duration)

	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: location,
		registry: reg,
		requests: requests,
		duration: duration,
	}
}

// Registry Prometheusのレジストリ（/metrics用）
func (s *MonitoringService) Registry() *prometheus.Registry {
	return s.registry
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.requests.WithLabelValues(string(entry.Direction), entry.Method, entry.Path, statusClass(entry.StatusCode)).Inc()
	s.duration.WithLabelValues(string(entry.Direction), entry.Method, entry.Path).Observe(entry.ResponseTime.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = append([]LogEntry(nil), s.logs[len(s.logs)-maxLogEntries:]...)
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// 除外するパス
		path := c.FullPath()
		if path == "" || path == "/metrics" || strings.HasPrefix(path, "/api/v1/monitoring") || path == "/api/v1/events" {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Direction:    DirectionInbound,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// Transport wraps next so every outbound ERP API call is recorded.
func (s *MonitoringService) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		status := 0
		if err == nil {
			status = resp.StatusCode
		}
		s.LogRequest(LogEntry{
			Timestamp:    start,
			Direction:    DirectionOutbound,
			Path:         routeOf(req.URL.Path),
			Method:       req.Method,
			StatusCode:   status,
			ResponseTime: time.Since(start),
		})
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// routeOf collapses numeric ids so metrics labels stay bounded.
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// requestsOverTime: 過去から現在へ向かう1時間ごとのバケット
	buckets := make(map[string]int)
	for _, entry := range filtered {
		buckets[entry.Timestamp.In(s.location).Truncate(time.Hour).Format(time.RFC3339)]++
	}
	requestsOverTime := make([]map[string]interface{}, periodHours)
	for i := 0; i < periodHours; i++ {
		target := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		key := target.Truncate(time.Hour).Format(time.RFC3339)
		requestsOverTime[i] = map[string]interface{}{"time": target.Format("15:00"), "requests": buckets[key]}
	}

	endpoints := make(map[string]int)
	statusCodes := map[string]int{"2xx Success": 0, "4xx Client Error": 0, "5xx Server Error": 0, "Transport Error": 0}
	sum := make(map[string]time.Duration)
	count := make(map[string]int)
	for _, entry := range filtered {
		key := string(entry.Direction) + " " + entry.Method + " " + entry.Path
		endpoints[key]++
		sum[key] += entry.ResponseTime
		count[key]++
		switch statusClass(entry.StatusCode) {
		case "2xx":
			statusCodes["2xx Success"]++
		case "4xx":
			statusCodes["4xx Client Error"]++
		case "5xx":
			statusCodes["5xx Server Error"]++
		case "error":
			statusCodes["Transport Error"]++
		}
	}

	statusCodesSlice := make([]map[string]interface{}, 0, len(statusCodes))
	for name, value := range statusCodes {
		statusCodesSlice = append(statusCodesSlice, map[string]interface{}{"name": name, "value": value})
	}
	sort.Slice(statusCodesSlice, func(i, j int) bool {
		return statusCodesSlice[i]["name"].(string) < statusCodesSlice[j]["name"].(string)
	})

	avgResponseTimes := make([]map[string]interface{}, 0, len(sum))
	for key, total := range sum {
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": key, "responseTime": total.Milliseconds() / int64(count[key])})
	}
	sort.Slice(avgResponseTimes, func(i, j int) bool {
		return avgResponseTimes[i]["endpoint"].(string) < avgResponseTimes[j]["endpoint"].(string)
	})

	// 直近のエラー（新しい順に最大10件）
	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if code := filtered[i].StatusCode; code == 0 || code >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodesSlice,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
	}
}
