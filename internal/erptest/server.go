// Package erptest provides an in-memory ERP API used by tests. It mirrors the
// remote backend's validation rules, id/timestamp assignment and error bodies.
package erptest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"erp-admin-console/pkg/models"

	"github.com/gin-gonic/gin"
)

// AnalyzeFunc produces the status and body for POST /genai-analyze.
type AnalyzeFunc func(req models.AnalyzeRequest) (int, interface{})

type forcedFailure struct {
	status int
	body   string
}

// Server is a fake ERP API backed by an httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	products []models.Product
	sales    []models.SalesRecord
	nextID   int
	hits     map[string]int
	failures map[string]forcedFailure
	analyze  AnalyzeFunc
	requests []models.AnalyzeRequest
}

// New starts a fake ERP API. It is closed with t.Cleanup by the caller.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		nextID:   1,
		hits:     make(map[string]int),
		failures: make(map[string]forcedFailure),
	}

	r := gin.New()
	r.Use(s.countAndFail())
	r.GET("/products", s.listProducts)
	r.POST("/products", s.createProduct)
	r.GET("/products/:id", s.getProduct)
	r.PUT("/products/:id", s.updateProduct)
	r.DELETE("/products/:id", s.deleteProduct)
	r.GET("/sales", s.listSales)
	r.POST("/genai-analyze", s.analyzeSales)

	s.Server = httptest.NewServer(r)
	return s
}

// Hits returns how many requests reached method+route (gin route pattern, e.g. "/products/:id").
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+route]
}

// TotalHits returns the number of requests received on any route.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// FailNext makes the next request to method+route answer status with a raw body.
func (s *Server) FailNext(method, route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+route] = forcedFailure{status: status, body: body}
}

// SetAnalyze replaces the /genai-analyze behaviour.
func (s *Server) SetAnalyze(fn AnalyzeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyze = fn
}

// AnalyzeRequests returns the bodies received by /genai-analyze.
func (s *Server) AnalyzeRequests() []models.AnalyzeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnalyzeRequest(nil), s.requests...)
}

// SeedProduct stores a product as if it had been created through the API.
func (s *Server) SeedProduct(name string, price float64, quantity int) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(name, nil, price, quantity)
}

// SeedSales appends sales records, assigning ids.
func (s *Server) SeedSales(records ...models.SalesRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.ID = len(s.sales) + 1
		s.sales = append(s.sales, r)
	}
}

func (s *Server) countAndFail() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		s.hits[key]++
		f, forced := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()

		if forced {
			c.Data(f.status, "application/json", []byte(f.body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}

func (s *Server) insertLocked(name string, description *string, price float64, quantity int) models.Product {
	now := timestamp()
	p := models.Product{
		ID:          s.nextID,
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.products = append(s.products, p)
	return p
}

func (s *Server) indexLocked(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return 0, false
	}
	for i, p := range s.products {
		if p.ID == id {
			return i, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	return 0, false
}

func (s *Server) nameTakenLocked(name string, exceptID int) bool {
	for _, p := range s.products {
		if p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}

// decodeBody decodes a JSON object keeping numbers as json.Number so integer
// and float literals can be told apart.
func decodeBody(c *gin.Context) (map[string]interface{}, bool) {
	raw, err := c.GetRawData()
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return nil, false
	}
	return data, true
}

func priceValue(v interface{}) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

func quantityValue(v interface{}) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, false
	}
	return int(i), true
}

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Product{}, s.products...)
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexLocked(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.products[i])
}

func (s *Server) createProduct(c *gin.Context) {
	data, ok := decodeBody(c)
	if !ok {
		return
	}

	name, _ := data["name"].(string)
	if name == "" || data["price"] == nil || data["quantity"] == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: name, price, quantity"})
		return
	}
	price, ok := priceValue(data["price"])
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a non-negative number"})
		return
	}
	quantity, ok := quantityValue(data["quantity"])
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a non-negative integer"})
		return
	}
	var description *string
	if d, ok := data["description"].(string); ok {
		description = &d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(name, 0) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Product with name '%s' already exists.", name)})
		return
	}
	c.JSON(http.StatusCreated, s.insertLocked(name, description, price, quantity))
}

func (s *Server) updateProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexLocked(c)
	if !ok {
		return
	}
	data, ok := decodeBody(c)
	if !ok {
		return
	}

	p := s.products[i]
	if v, ok := data["name"]; ok {
		name, _ := v.(string)
		if s.nameTakenLocked(name, p.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Product with name '%s' already exists.", name)})
			return
		}
		p.Name = name
	}
	if v, ok := data["description"]; ok {
		if d, ok := v.(string); ok {
			p.Description = &d
		} else {
			p.Description = nil
		}
	}
	if v, ok := data["price"]; ok {
		price, ok := priceValue(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a non-negative number"})
			return
		}
		p.Price = price
	}
	if v, ok := data["quantity"]; ok {
		quantity, ok := quantityValue(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a non-negative integer"})
			return
		}
		p.Quantity = quantity
	}
	p.UpdatedAt = timestamp()
	s.products[i] = p
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.indexLocked(c)
	if !ok {
		return
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (s *Server) listSales(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.SalesRecord{}, s.sales...)
	c.JSON(http.StatusOK, out)
}

func (s *Server) analyzeSales(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn := s.analyze
	s.mu.Unlock()

	if fn != nil {
		status, body := fn(req)
		if raw, ok := body.(string); ok {
			c.Data(status, "application/json", []byte(raw))
			return
		}
		c.JSON(status, body)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response": fmt.Sprintf("Analyzed %d sales records for: %s", len(req.SalesData), req.Query),
	})
}
