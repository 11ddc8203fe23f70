package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"erp-admin-console/internal/erptest"
	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"
	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testConsole struct {
	router     *gin.Engine
	session    *services.Session
	monitoring *services.MonitoringService
	erp        *erptest.Server
}

// newTestConsole は偽のERP APIに接続したコンソールを構築
func newTestConsole(t *testing.T) *testConsole {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	erp := erptest.New()
	t.Cleanup(erp.Close)

	monitoring := services.NewMonitoringService(time.UTC)
	client := apiclient.NewClient(erp.URL, logger, apiclient.WithTransport(monitoring.Transport(nil)))
	session := services.NewSession(client, 5*time.Second, logger)

	return &testConsole{
		router:     NewRouter(session, monitoring, time.UTC, logger),
		session:    session,
		monitoring: monitoring,
		erp:        erp,
	}
}

func (tc *testConsole) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	tc := newTestConsole(t)

	w := tc.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]interface{}{"products": false, "sales": false}, body["loaded"])
}

func TestRefreshAndState(t *testing.T) {
	tc := newTestConsole(t)
	tc.erp.SeedProduct("Widget", 10, 1)

	w := tc.do(http.MethodPost, "/api/v1/refresh?collection=products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, tc.erp.Hits(http.MethodGet, "/sales"))

	w = tc.do(http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state services.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Products, 1)
	assert.Equal(t, "Widget", state.Products[0].Name)

	w = tc.do(http.MethodPost, "/api/v1/refresh?collection=orders", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshFailure(t *testing.T) {
	tc := newTestConsole(t)
	tc.erp.FailNext(http.MethodGet, "/sales", http.StatusServiceUnavailable, `{"error": "maintenance"}`)

	w := tc.do(http.MethodPost, "/api/v1/refresh", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to load sales: maintenance (status: 503)", body["error"])
}

func TestCreateProduct(t *testing.T) {
	tc := newTestConsole(t)

	w := tc.do(http.MethodPost, "/api/v1/products", models.ProductForm{Name: "Widget", Price: "abc", Quantity: "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Price must be a valid non-negative number.", decode(t, w)["error"])
	assert.Zero(t, tc.erp.TotalHits())

	w = tc.do(http.MethodPost, "/api/v1/products", models.ProductForm{Name: "Widget", Price: "9.99", Quantity: "3"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, tc.session.Store.Products(), 1)

	w = tc.do(http.MethodPost, "/api/v1/products", models.ProductForm{Name: "Widget", Price: "1", Quantity: "1"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Error adding product: Product with name 'Widget' already exists.", decode(t, w)["error"])
}

func TestDeleteProductRequiresConfirmation(t *testing.T) {
	tc := newTestConsole(t)
	p := tc.erp.SeedProduct("Widget", 10, 1)

	w := tc.do(http.MethodDelete, "/api/v1/products/1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, tc.erp.TotalHits())

	w = tc.do(http.MethodDelete, "/api/v1/products/abc?confirm=true", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tc.do(http.MethodDelete, "/api/v1/products/1?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, tc.erp.Hits(http.MethodDelete, "/products/:id"))
	_, ok := tc.session.Store.Product(p.ID)
	assert.False(t, ok)
	assert.Equal(t, "Product deleted successfully!", tc.session.Status.Current().Text)
}

func TestEditFlow(t *testing.T) {
	tc := newTestConsole(t)
	widget := tc.erp.SeedProduct("Widget", 10, 1)
	tc.erp.SeedProduct("Gadget", 5, 1)
	require.NoError(t, tc.session.Mount(context.Background()))

	w := tc.do(http.MethodPatch, "/api/v1/edit", UpdateFieldRequest{Field: "name", Value: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tc.do(http.MethodPost, "/api/v1/products/999/edit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tc.do(http.MethodPost, "/api/v1/products/1/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = tc.do(http.MethodPost, "/api/v1/products/2/edit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = tc.do(http.MethodPatch, "/api/v1/edit", UpdateFieldRequest{Field: "sku", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tc.do(http.MethodPatch, "/api/v1/edit", UpdateFieldRequest{Field: "quantity", Value: "7"})
	require.Equal(t, http.StatusOK, w.Code)

	w = tc.do(http.MethodPost, "/api/v1/edit/commit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	updated, ok := tc.session.Store.Product(widget.ID)
	require.True(t, ok)
	assert.Equal(t, 7, updated.Quantity)
	_, active := tc.session.Overlay.Active()
	assert.False(t, active)

	w = tc.do(http.MethodPost, "/api/v1/edit/commit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommitEditValidationKeepsDraft(t *testing.T) {
	tc := newTestConsole(t)
	tc.erp.SeedProduct("Widget", 10, 1)
	require.NoError(t, tc.session.Mount(context.Background()))
	hits := tc.erp.TotalHits()

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/api/v1/products/1/edit", nil).Code)
	require.Equal(t, http.StatusOK, tc.do(http.MethodPatch, "/api/v1/edit", UpdateFieldRequest{Field: "quantity", Value: "1.5"}).Code)

	w := tc.do(http.MethodPost, "/api/v1/edit/commit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Quantity must be a valid non-negative integer.", decode(t, w)["error"])
	assert.Equal(t, hits, tc.erp.TotalHits())

	_, active := tc.session.Overlay.Active()
	assert.True(t, active)

	require.Equal(t, http.StatusOK, tc.do(http.MethodDelete, "/api/v1/edit", nil).Code)
	_, active = tc.session.Overlay.Active()
	assert.False(t, active)
}

func TestDashboard(t *testing.T) {
	tc := newTestConsole(t)
	tc.erp.SeedSales(
		models.SalesRecord{ProductName: "Widget", SalesDate: "2024-03-04", QuantitySold: 2, TotalRevenue: 10},
		models.SalesRecord{ProductName: "Gadget", SalesDate: "2024-03-05", QuantitySold: 1, TotalRevenue: 5},
		models.SalesRecord{ProductName: "Widget", SalesDate: "2024-03-11", QuantitySold: 3, TotalRevenue: 7},
	)
	require.NoError(t, tc.session.Mount(context.Background()))

	w := tc.do(http.MethodGet, "/api/v1/dashboard/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Data []ProductSummaryRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, []ProductSummaryRow{
		{ProductName: "Widget", TotalRevenue: 17, QuantitySold: 5},
		{ProductName: "Gadget", TotalRevenue: 5, QuantitySold: 1},
	}, summary.Data)

	w = tc.do(http.MethodGet, "/api/v1/dashboard/trend?granularity=monthly", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trend struct {
		Data []PeriodSummaryRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trend))
	require.Len(t, trend.Data, 1)
	assert.Equal(t, 22.0, trend.Data[0].TotalRevenue)

	w = tc.do(http.MethodGet, "/api/v1/dashboard/trend?granularity=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardExport(t *testing.T) {
	tc := newTestConsole(t)
	tc.erp.SeedProduct("Widget", 10, 1)
	require.NoError(t, tc.session.Mount(context.Background()))

	w := tc.do(http.MethodGet, "/api/v1/dashboard/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(services.SheetProducts)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestChat(t *testing.T) {
	tc := newTestConsole(t)

	w := tc.do(http.MethodPost, "/api/v1/chat", ChatRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, tc.erp.TotalHits())

	w = tc.do(http.MethodPost, "/api/v1/chat", ChatRequest{Query: "top product?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Analyzed 0 sales records for: top product?", tc.session.Relay.Exchange().Response)

	tc.erp.SetAnalyze(func(models.AnalyzeRequest) (int, interface{}) {
		return http.StatusInternalServerError, ``
	})
	w = tc.do(http.MethodPost, "/api/v1/chat", ChatRequest{Query: "again?"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Error: HTTP error! status: 500", decode(t, w)["error"])
}

func TestChatDraftQuery(t *testing.T) {
	tc := newTestConsole(t)

	w := tc.do(http.MethodPatch, "/api/v1/chat", ChatRequest{Query: "which week peaked?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "which week peaked?", tc.session.Relay.Exchange().Pending)
	assert.Zero(t, tc.erp.TotalHits())

	w = tc.do(http.MethodGet, "/api/v1/state", nil)
	assert.Contains(t, w.Body.String(), "which week peaked?")
}

func TestChatInFlightConflict(t *testing.T) {
	tc := newTestConsole(t)
	release := make(chan struct{})
	tc.erp.SetAnalyze(func(models.AnalyzeRequest) (int, interface{}) {
		<-release
		return http.StatusOK, models.AnalyzeResponse{Response: "done"}
	})

	done := make(chan int, 1)
	go func() {
		done <- tc.do(http.MethodPost, "/api/v1/chat", ChatRequest{Query: "first"}).Code
	}()
	require.Eventually(t, func() bool { return tc.session.Relay.Exchange().InFlight }, 2*time.Second, 5*time.Millisecond)

	w := tc.do(http.MethodPost, "/api/v1/chat", ChatRequest{Query: "second"})
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Len(t, tc.erp.AnalyzeRequests(), 1)
}

// closeNotifyingRecorder adds CloseNotify, which gin's Stream requires.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

func TestEventsSendsInitialState(t *testing.T) {
	tc := newTestConsole(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	tc.router.ServeHTTP(w, req)

	assert.True(t, strings.HasPrefix(w.Body.String(), "event:state"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))
}

func TestMonitoringLogsAndMetrics(t *testing.T) {
	tc := newTestConsole(t)
	tc.do(http.MethodGet, "/api/v1/state", nil)
	tc.do(http.MethodPost, "/api/v1/refresh?collection=products", nil)

	w := tc.do(http.MethodGet, "/api/v1/monitoring/logs?period=1h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data services.DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, 1, data.Endpoints["inbound GET /api/v1/state"])
	assert.Equal(t, 1, data.Endpoints["outbound GET /products"])

	w = tc.do(http.MethodGet, "/api/v1/monitoring/logs?period=2y", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tc.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "erp_console_requests_total")
}
