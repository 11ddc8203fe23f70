package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product record held by the remote ERP API.
// CreatedAt/UpdatedAt keep the server's original ISO string.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// DescriptionText 説明文（nilの場合は空文字）
func (p Product) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// SalesRecord represents a single sales transaction.
// ProductName is denormalized and is not a reference to Product.ID.
type SalesRecord struct {
	ID           int     `json:"id"`
	ProductName  string  `json:"product_name"`
	SalesDate    string  `json:"sales_date"`
	QuantitySold int     `json:"quantity_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ProductPayload is the request body for POST /products and PUT /products/{id}.
type ProductPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// ProductForm 入力フォームの値（検証前の自由入力テキスト）
type ProductForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
}

// AnalyzeRequest is the request body for POST /genai-analyze.
type AnalyzeRequest struct {
	Query     string        `json:"query"`
	SalesData []SalesRecord `json:"sales_data"`
}

// AnalyzeResponse is the success body of POST /genai-analyze.
type AnalyzeResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the failure body returned by every remote endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the success body of DELETE /products/{id}.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusKind ステータスメッセージの種別
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// StatusMessage ユーザーに表示する最新の操作結果
type StatusMessage struct {
	Text string     `json:"text"`
	Kind StatusKind `json:"kind"`
}

// EditDraft 編集中の商品の一時的な下書き
type EditDraft struct {
	ProductID int         `json:"product_id"`
	Fields    ProductForm `json:"fields"`
}

// ChatExchange 推論エンドポイントとのやり取りの状態
type ChatExchange struct {
	Pending     string     `json:"pending"`
	Response    string     `json:"response"`
	InFlight    bool       `json:"in_flight"`
	RequestID   string     `json:"request_id,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProductSummary is one chart row: revenue and quantity summed per product name.
type ProductSummary struct {
	ProductName  string
	TotalRevenue decimal.Decimal
	QuantitySold int
}

// PeriodSummary is one trend chart row for a daily, weekly or monthly period.
type PeriodSummary struct {
	Period       string // e.g. 2024-03-05, 2024-W12 or 2024-03
	StartDate    string // YYYY-MM-DD (inclusive)
	EndDate      string // YYYY-MM-DD (inclusive)
	TotalRevenue decimal.Decimal
	QuantitySold int
}
