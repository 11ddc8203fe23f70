package services

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"erp-admin-console/pkg/models"
)

var (
	// ErrNoActiveEdit is returned when a draft operation needs an active draft.
	ErrNoActiveEdit = errors.New("no active edit")
	// ErrUnknownField is returned by UpdateField for a field the draft does not hold.
	ErrUnknownField = errors.New("unknown field")
)

// EditOverlay holds at most one EditDraft. Drafts never touch the EntityStore;
// they reach the server only through MutationCoordinator.Update.
type EditOverlay struct {
	mu     sync.RWMutex
	draft  *models.EditDraft
	status *StatusChannel
}

// NewEditOverlay は新しいEditOverlayを生成します。
func NewEditOverlay(status *StatusChannel) *EditOverlay {
	return &EditOverlay{status: status}
}

// BeginEdit 商品の現在値から新しい下書きを作成
// 別の商品の下書きが既にある場合は何もせずfalseを返す。
func (o *EditOverlay) BeginEdit(product models.Product) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.draft != nil && o.draft.ProductID != product.ID {
		return false
	}
	o.draft = &models.EditDraft{
		ProductID: product.ID,
		Fields: models.ProductForm{
			Name:        product.Name,
			Description: product.DescriptionText(),
			Price:       strconv.FormatFloat(product.Price, 'f', -1, 64),
			Quantity:    strconv.Itoa(product.Quantity),
		},
	}
	o.status.Clear()
	return true
}

// UpdateField sets one draft field to free-form text. No validation happens here.
func (o *EditOverlay) UpdateField(name, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.draft == nil {
		return ErrNoActiveEdit
	}
	switch name {
	case "name":
		o.draft.Fields.Name = value
	case "description":
		o.draft.Fields.Description = value
	case "price":
		o.draft.Fields.Price = value
	case "quantity":
		o.draft.Fields.Quantity = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// CancelEdit 下書きを破棄（冪等）
func (o *EditOverlay) CancelEdit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = nil
}

// clearFor discards the draft only if it still targets id.
func (o *EditOverlay) clearFor(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.draft != nil && o.draft.ProductID == id {
		o.draft = nil
	}
}

// Active 現在の下書きのコピーを取得
func (o *EditOverlay) Active() (models.EditDraft, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.draft == nil {
		return models.EditDraft{}, false
	}
	return *o.draft, true
}
