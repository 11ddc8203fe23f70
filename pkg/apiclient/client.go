package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"erp-admin-console/pkg/models"
)

// Client はERP API（商品・売上・推論エンドポイント）へのリクエストを管理します。
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport 送信リクエストのTransportを差し替え（モニタリング用）
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithTimeout 商品・売上APIの1リクエストあたりのタイムアウトを設定
// Analyze には適用されず、呼び出し元のcontextの期限に従います。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient は新しいERP APIクライアントを作成します。
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    30 * time.Second,
		log:        logger.With("component", "apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProducts GET /products
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.doRequest(ctx, http.MethodGet, "/products", nil, &products, nil); err != nil {
		return nil, err
	}
	return products, nil
}

// ListSales GET /sales
func (c *Client) ListSales(ctx context.Context) ([]models.SalesRecord, error) {
	var records []models.SalesRecord
	if err := c.doRequest(ctx, http.MethodGet, "/sales", nil, &records, nil); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateProduct POST /products
func (c *Client) CreateProduct(ctx context.Context, payload models.ProductPayload) (*models.Product, error) {
	var product models.Product
	if err := c.doRequest(ctx, http.MethodPost, "/products", payload, &product, nil); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct PUT /products/{id}
func (c *Client) UpdateProduct(ctx context.Context, id int, payload models.ProductPayload) (*models.Product, error) {
	var product models.Product
	if err := c.doRequest(ctx, http.MethodPut, "/products/"+strconv.Itoa(id), payload, &product, nil); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct DELETE /products/{id}（確認メッセージを返す）
func (c *Client) DeleteProduct(ctx context.Context, id int) (string, error) {
	var resp models.MessageResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/products/"+strconv.Itoa(id), nil, &resp, nil); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Analyze POST /genai-analyze
func (c *Client) Analyze(ctx context.Context, req models.AnalyzeRequest, requestID string) (string, error) {
	var resp models.AnalyzeResponse
	headers := map[string]string{}
	if requestID != "" {
		headers["X-Request-ID"] = requestID
	}
	if err := c.send(ctx, http.MethodPost, "/genai-analyze", req, &resp, headers); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// doRequest はクライアントのタイムアウトを適用してリクエストを実行します。
func (c *Client) doRequest(ctx context.Context, method, path string, requestData, responseData interface{}, headers map[string]string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.send(ctx, method, path, requestData, responseData, headers)
}

// send はHTTPリクエストの実行と基本的なレスポンス処理を行う共通メソッドです。
// 戻り値のエラーは常に *Failure です。
func (c *Client) send(ctx context.Context, method, path string, requestData, responseData interface{}, headers map[string]string) error {
	var body io.Reader
	if requestData != nil {
		requestBody, err := json.Marshal(requestData)
		if err != nil {
			return transportFailure("failed to encode request: %v", err)
		}
		body = bytes.NewReader(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportFailure("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "ERP APIへの接続に失敗", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return transportFailure("network error: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure("failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := statusMessage(resp.StatusCode)
		var errorResp models.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			message = errorResp.Error
		}
		c.log.InfoContext(ctx, "ERP APIがエラーを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", message),
		)
		return &Failure{Kind: FailureApplication, Message: message, Status: resp.StatusCode}
	}

	if responseData == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, responseData); err != nil {
		return transportFailure("malformed response: %v", err)
	}

	c.log.DebugContext(ctx, "ERP API呼び出し成功", slog.String("method", method), slog.String("path", path), slog.Int("status", resp.StatusCode))
	return nil
}
