package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"

	"github.com/shopspring/decimal"
)

// ProductWriter issues product writes against the remote API.
type ProductWriter interface {
	CreateProduct(ctx context.Context, payload models.ProductPayload) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int, payload models.ProductPayload) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int) (string, error)
}

// CollectionLoader reloads a collection after a successful write.
type CollectionLoader interface {
	Load(ctx context.Context, coll Collection) error
}

// ConfirmFunc asks the user to confirm a destructive action.
type ConfirmFunc func(ctx context.Context, productID int) bool

// ValidationError is a local validation failure; no request was issued.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotConfirmed is returned by Delete when the user declines the confirmation.
var ErrNotConfirmed = errors.New("delete not confirmed")

// MutationCoordinator は商品の作成・更新・削除を実行し、成功時に商品一覧を再取得します。
// ローカルでの楽観的更新は行わず、書き込み後はサーバーを唯一の正とします。
type MutationCoordinator struct {
	writer  ProductWriter
	loader  CollectionLoader
	status  *StatusChannel
	overlay *EditOverlay
	log     *slog.Logger
}

// NewMutationCoordinator は新しいMutationCoordinatorを生成します。
func NewMutationCoordinator(writer ProductWriter, loader CollectionLoader, status *StatusChannel, overlay *EditOverlay, logger *slog.Logger) *MutationCoordinator {
	return &MutationCoordinator{
		writer:  writer,
		loader:  loader,
		status:  status,
		overlay: overlay,
		log:     logger.With("component", "mutation_coordinator"),
	}
}

// Create 商品を作成
func (m *MutationCoordinator) Create(ctx context.Context, form models.ProductForm) error {
	m.status.Clear()

	payload, err := validateForm(form)
	if err != nil {
		m.status.Error(err.Error())
		return err
	}

	created, err := m.writer.CreateProduct(ctx, payload)
	if err != nil {
		return m.fail(ctx, "Error adding product", err)
	}

	m.log.InfoContext(ctx, "✅ 商品を作成しました", slog.Int("id", created.ID), slog.String("name", created.Name))
	m.status.Success("Product added successfully!")
	m.reload(ctx)
	return nil
}

// Update 商品を更新（成功時に下書きを破棄）
func (m *MutationCoordinator) Update(ctx context.Context, id int, form models.ProductForm) error {
	m.status.Clear()

	payload, err := validateForm(form)
	if err != nil {
		m.status.Error(err.Error())
		return err
	}

	updated, err := m.writer.UpdateProduct(ctx, id, payload)
	if err != nil {
		return m.fail(ctx, "Error updating product", err)
	}

	m.log.InfoContext(ctx, "✅ 商品を更新しました", slog.Int("id", updated.ID))
	m.status.Success("Product updated successfully!")
	m.overlay.clearFor(id)
	m.reload(ctx)
	return nil
}

// CommitEdit applies the active draft through Update.
func (m *MutationCoordinator) CommitEdit(ctx context.Context) error {
	draft, ok := m.overlay.Active()
	if !ok {
		return ErrNoActiveEdit
	}
	return m.Update(ctx, draft.ProductID, draft.Fields)
}

// Delete 確認後に商品を削除
// 確認が得られない場合はリクエストもステータス変更も行わない。
func (m *MutationCoordinator) Delete(ctx context.Context, id int, confirm ConfirmFunc) error {
	if confirm == nil || !confirm(ctx, id) {
		return ErrNotConfirmed
	}
	m.status.Clear()

	message, err := m.writer.DeleteProduct(ctx, id)
	if err != nil {
		return m.fail(ctx, "Error deleting product", err)
	}

	m.log.InfoContext(ctx, "🗑️ 商品を削除しました", slog.Int("id", id), slog.String("message", message))
	m.status.Success("Product deleted successfully!")
	m.reload(ctx)
	return nil
}

func (m *MutationCoordinator) fail(ctx context.Context, prefix string, err error) error {
	failure := apiclient.AsFailure(err)
	m.status.Error(fmt.Sprintf("%s: %s", prefix, failure.Message))
	m.log.WarnContext(ctx, "商品の書き込みに失敗", slog.String("operation", prefix), slog.String("error", failure.Detail()))
	return failure
}

// reload re-derives the canonical list; a failure is reported through the
// StatusChannel by the loader itself.
func (m *MutationCoordinator) reload(ctx context.Context) {
	if err := m.loader.Load(ctx, CollectionProducts); err != nil {
		m.log.WarnContext(ctx, "書き込み後の再取得に失敗", slog.String("error", err.Error()))
	}
}

// validateForm checks required fields and numeric parseability before any request.
func validateForm(form models.ProductForm) (models.ProductPayload, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return models.ProductPayload{}, &ValidationError{Message: "Name is required."}
	}

	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil || price.IsNegative() {
		return models.ProductPayload{}, &ValidationError{Message: "Price must be a valid non-negative number."}
	}
	// JSONの数値として送れる範囲に限る
	wirePrice := price.InexactFloat64()
	if math.IsInf(wirePrice, 0) || math.IsNaN(wirePrice) {
		return models.ProductPayload{}, &ValidationError{Message: "Price must be a valid non-negative number."}
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(form.Quantity))
	if err != nil || quantity < 0 {
		return models.ProductPayload{}, &ValidationError{Message: "Quantity must be a valid non-negative integer."}
	}

	return models.ProductPayload{
		Name:        name,
		Description: form.Description,
		Price:       wirePrice,
		Quantity:    quantity,
	}, nil
}
