package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"erp-admin-console/pkg/models"
	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// ConsoleHandler は商品の閲覧・作成・編集・削除のハンドラです。
type ConsoleHandler struct {
	session *services.Session
	log     *slog.Logger
}

// NewConsoleHandler は新しいConsoleHandlerを生成します。
func NewConsoleHandler(session *services.Session, logger *slog.Logger) *ConsoleHandler {
	return &ConsoleHandler{
		session: session,
		log:     logger.With("component", "console_handler"),
	}
}

// UpdateFieldRequest PATCH /edit のリクエストボディ
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// GetState 現在のセッション状態を返す
func (h *ConsoleHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Refresh コレクションを再取得（指定がなければ全件）
func (h *ConsoleHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var err error
	if name := c.Query("collection"); name != "" {
		coll, parseErr := services.ParseCollection(name)
		if parseErr != nil {
			respondError(c, parseErr, "")
			return
		}
		err = h.session.Store.Load(ctx, coll)
	} else {
		err = h.session.Mount(ctx)
	}

	if err != nil {
		respondError(c, err, h.statusText(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.session.Snapshot()})
}

// CreateProduct 商品を作成
func (h *ConsoleHandler) CreateProduct(c *gin.Context) {
	var form models.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	if err := h.session.Mutations.Create(c.Request.Context(), form); err != nil {
		respondError(c, err, h.statusText(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "state": h.session.Snapshot()})
}

// DeleteProduct 商品を削除（confirm=trueが必要）
func (h *ConsoleHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	confirmed := c.Query("confirm") == "true"
	confirm := func(context.Context, int) bool { return confirmed }

	if err := h.session.Mutations.Delete(c.Request.Context(), id, confirm); err != nil {
		if errors.Is(err, services.ErrNotConfirmed) {
			respondError(c, err, "deletion requires confirm=true")
			return
		}
		respondError(c, err, h.statusText(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.session.Snapshot()})
}

// BeginEdit 商品の編集を開始
func (h *ConsoleHandler) BeginEdit(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.session.BeginEdit(id); err != nil {
		respondError(c, err, "")
		return
	}
	draft, _ := h.session.Overlay.Active()
	c.JSON(http.StatusOK, gin.H{"success": true, "edit": draft})
}

// UpdateEditField 下書きのフィールドを更新
func (h *ConsoleHandler) UpdateEditField(c *gin.Context) {
	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "field is required"})
		return
	}
	if err := h.session.Overlay.UpdateField(req.Field, req.Value); err != nil {
		respondError(c, err, "")
		return
	}
	draft, _ := h.session.Overlay.Active()
	c.JSON(http.StatusOK, gin.H{"success": true, "edit": draft})
}

// CancelEdit 下書きを破棄
func (h *ConsoleHandler) CancelEdit(c *gin.Context) {
	h.session.Overlay.CancelEdit()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CommitEdit 下書きをサーバーへ送信
func (h *ConsoleHandler) CommitEdit(c *gin.Context) {
	if err := h.session.Mutations.CommitEdit(c.Request.Context()); err != nil {
		if errors.Is(err, services.ErrNoActiveEdit) {
			respondError(c, err, "")
			return
		}
		respondError(c, err, h.statusText(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.session.Snapshot()})
}

// statusText prefers the user-facing StatusMessage set by the operation.
func (h *ConsoleHandler) statusText(err error) string {
	if msg := h.session.Status.Current(); msg != nil && msg.Kind == models.StatusError {
		return msg.Text
	}
	h.log.Warn("ステータスメッセージのないエラー", slog.String("error", err.Error()))
	return err.Error()
}
