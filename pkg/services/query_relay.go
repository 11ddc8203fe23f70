package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"

	"github.com/google/uuid"
)

var (
	// ErrEmptyQuery is returned for a query that is blank after trimming.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrQueryInFlight is returned while a previous query is still being processed.
	ErrQueryInFlight = errors.New("a query is already in flight")
)

// ProcessingPlaceholder is shown as the response while a query is in flight.
const ProcessingPlaceholder = "Processing your query..."

// Analyzer forwards a query and the sales snapshot to the inference endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest, requestID string) (string, error)
}

// QueryRelay は自由入力の質問を売上データと共に推論エンドポイントへ転送します。
// 同時に処理できるリクエストは1件のみです（single-flight）。
type QueryRelay struct {
	analyzer Analyzer
	timeout  time.Duration
	log      *slog.Logger

	mu       sync.RWMutex
	exchange models.ChatExchange
}

// NewQueryRelay は新しいQueryRelayを生成します。
func NewQueryRelay(analyzer Analyzer, timeout time.Duration, logger *slog.Logger) *QueryRelay {
	return &QueryRelay{
		analyzer: analyzer,
		timeout:  timeout,
		log:      logger.With("component", "query_relay"),
	}
}

// SetPending 入力中の質問テキストを記録
func (q *QueryRelay) SetPending(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.exchange.Pending = text
}

// Exchange 現在のやり取りのコピーを取得
func (q *QueryRelay) Exchange() models.ChatExchange {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.exchange
}

// SubmitQuery sends text with the full sales snapshot to the inference endpoint.
// A blank text or a submission while another is in flight returns
// ErrEmptyQuery / ErrQueryInFlight without changing state or contacting the
// network. The request is not cancelled when ctx is; it is bounded by the
// relay's timeout instead.
func (q *QueryRelay) SubmitQuery(ctx context.Context, text string, sales []models.SalesRecord) (err error) {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}

	q.mu.Lock()
	if q.exchange.InFlight {
		q.mu.Unlock()
		return ErrQueryInFlight
	}
	requestID := uuid.NewString()
	submittedAt := time.Now()
	q.exchange = models.ChatExchange{
		Pending:     text,
		Response:    ProcessingPlaceholder,
		InFlight:    true,
		RequestID:   requestID,
		SubmittedAt: &submittedAt,
	}
	q.mu.Unlock()

	var response string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error while processing query: %v", r)
		}
		q.finish(ctx, requestID, response, err)
	}()

	snapshot := make([]models.SalesRecord, len(sales))
	copy(snapshot, sales)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()

	q.log.InfoContext(ctx, "🤖 推論エンドポイントへ質問を送信", slog.String("request_id", requestID), slog.Int("sales_records", len(snapshot)))
	response, err = q.analyzer.Analyze(callCtx, models.AnalyzeRequest{Query: text, SalesData: snapshot}, requestID)
	return err
}

// finish releases the in-flight flag on every path.
func (q *QueryRelay) finish(ctx context.Context, requestID, response string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	completedAt := time.Now()
	q.exchange.InFlight = false
	q.exchange.CompletedAt = &completedAt

	if err != nil {
		q.exchange.Response = "Error: " + apiclient.AsFailure(err).Detail()
		q.log.WarnContext(ctx, "推論リクエストに失敗", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return
	}
	q.exchange.Response = response
	q.exchange.Pending = ""
	q.log.InfoContext(ctx, "✅ 推論レスポンスを受信", slog.String("request_id", requestID))
}
