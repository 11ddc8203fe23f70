package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// ChatHandler は売上データに関する自由入力の質問を推論エンドポイントへ中継します。
type ChatHandler struct {
	session *services.Session
	log     *slog.Logger
}

// NewChatHandler は新しいChatHandlerを生成します。
func NewChatHandler(session *services.Session, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		session: session,
		log:     logger.With("component", "chat_handler"),
	}
}

// ChatRequest POST /chat・PATCH /chat のリクエストボディ
type ChatRequest struct {
	Query string `json:"query"`
}

// SubmitQuery 質問を送信し、応答まで待機
func (h *ChatHandler) SubmitQuery(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	err := h.session.SubmitQuery(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, services.ErrEmptyQuery), errors.Is(err, services.ErrQueryInFlight):
		respondError(c, err, "")
		return
	case err != nil:
		exchange := h.session.Relay.Exchange()
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   exchange.Response,
			"chat":    exchange,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "chat": h.session.Relay.Exchange()})
}

// UpdateDraft 入力中の質問テキストを記録（送信はしない）
func (h *ChatHandler) UpdateDraft(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	h.session.Relay.SetPending(req.Query)
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": h.session.Relay.Exchange()})
}
