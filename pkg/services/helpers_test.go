package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"erp-admin-console/internal/erptest"
	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession は偽のERP APIに接続したSessionを生成
func newTestSession(t *testing.T) (*Session, *erptest.Server) {
	t.Helper()
	srv := erptest.New()
	t.Cleanup(srv.Close)
	client := apiclient.NewClient(srv.URL, newTestLogger())
	return NewSession(client, 5*time.Second, newTestLogger()), srv
}

// countingLoader records Load calls before delegating.
type countingLoader struct {
	mu    sync.Mutex
	calls []Collection
	next  CollectionLoader
}

func (l *countingLoader) Load(ctx context.Context, coll Collection) error {
	l.mu.Lock()
	l.calls = append(l.calls, coll)
	l.mu.Unlock()
	return l.next.Load(ctx, coll)
}

func (l *countingLoader) Calls() []Collection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Collection(nil), l.calls...)
}

func sampleSales() []models.SalesRecord {
	return []models.SalesRecord{
		{ProductName: "Widget", SalesDate: "2024-03-04", QuantitySold: 2, TotalRevenue: 10},
		{ProductName: "Gadget", SalesDate: "2024-03-05", QuantitySold: 1, TotalRevenue: 5},
		{ProductName: "Widget", SalesDate: "2024-03-11", QuantitySold: 3, TotalRevenue: 7},
	}
}
