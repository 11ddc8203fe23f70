package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"erp-admin-console/internal/erptest"
	"erp-admin-console/pkg/apiclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue reads erp_console_requests_total for one label set from the registry.
func counterValue(t *testing.T, m *MonitoringService, direction, method, path, class string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	want := map[string]string{"direction": direction, "method": method, "path": path, "status_class": class}
	for _, family := range families {
		if family.GetName() != "erp_console_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			got := make(map[string]string)
			for _, label := range metric.GetLabel() {
				got[label.GetName()] = label.GetValue()
			}
			if assert.ObjectsAreEqual(want, got) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMonitoringService_LoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	monitoring := NewMonitoringService(time.UTC)

	router := gin.New()
	router.Use(monitoring.LoggingMiddleware())
	router.GET("/api/v1/state", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/monitoring/logs", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/state", "/api/v1/state", "/api/v1/monitoring/logs", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	data := monitoring.GetDashboardData(1)
	assert.Equal(t, map[string]int{"inbound GET /api/v1/state": 2}, data.Endpoints)
	assert.Equal(t, 2.0, counterValue(t, monitoring, "inbound", "GET", "/api/v1/state", "2xx"))
}

func TestMonitoringService_TransportRecordsOutboundCalls(t *testing.T) {
	srv := erptest.New()
	t.Cleanup(srv.Close)
	monitoring := NewMonitoringService(time.UTC)
	srv.SeedProduct("Widget", 1, 1)
	srv.FailNext(http.MethodDelete, "/products/:id", http.StatusInternalServerError, ``)

	client := apiclient.NewClient(srv.URL, newTestLogger(), apiclient.WithTransport(monitoring.Transport(nil)))
	_, err := client.ListProducts(t.Context())
	require.NoError(t, err)
	_, err = client.DeleteProduct(t.Context(), 1)
	require.Error(t, err)

	data := monitoring.GetDashboardData(1)
	assert.Equal(t, 1, data.Endpoints["outbound GET /products"])
	assert.Equal(t, 1, data.Endpoints["outbound DELETE /products/:id"])
	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, http.StatusInternalServerError, data.RecentErrors[0].StatusCode)
	assert.Equal(t, 1.0, counterValue(t, monitoring, "outbound", "DELETE", "/products/:id", "5xx"))
}

func TestMonitoringService_TransportError(t *testing.T) {
	monitoring := NewMonitoringService(time.UTC)
	client := apiclient.NewClient("http://127.0.0.1:1", newTestLogger(), apiclient.WithTransport(monitoring.Transport(nil)))

	_, err := client.ListSales(t.Context())
	require.Error(t, err)

	data := monitoring.GetDashboardData(1)
	require.Len(t, data.RecentErrors, 1)
	assert.Zero(t, data.RecentErrors[0].StatusCode)
	assert.Contains(t, data.StatusCodes, map[string]interface{}{"name": "Transport Error", "value": 1})
}

func TestMonitoringService_DashboardWindow(t *testing.T) {
	monitoring := NewMonitoringService(time.UTC)
	now := time.Now()
	monitoring.LogRequest(LogEntry{Timestamp: now.Add(-30 * time.Minute), Direction: DirectionInbound, Method: "GET", Path: "/api/v1/state", StatusCode: 200, ResponseTime: 20 * time.Millisecond})
	monitoring.LogRequest(LogEntry{Timestamp: now.Add(-10 * time.Minute), Direction: DirectionInbound, Method: "GET", Path: "/api/v1/state", StatusCode: 200, ResponseTime: 40 * time.Millisecond})
	monitoring.LogRequest(LogEntry{Timestamp: now.Add(-5 * time.Hour), Direction: DirectionInbound, Method: "GET", Path: "/api/v1/state", StatusCode: 500, ResponseTime: time.Second})

	data := monitoring.GetDashboardData(2)
	assert.Len(t, data.RequestsOverTime, 2)
	assert.Equal(t, 2, data.Endpoints["inbound GET /api/v1/state"])
	assert.Empty(t, data.RecentErrors)
	require.Len(t, data.AvgResponseTimes, 1)
	assert.Equal(t, int64(30), data.AvgResponseTimes[0]["responseTime"])
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "/products/:id", routeOf("/products/42"))
	assert.Equal(t, "/products", routeOf("/products"))
	assert.Equal(t, "/genai-analyze", routeOf("/genai-analyze"))
}
