package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"erp-admin-console/pkg/models"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrProductNotFound is returned when an id is not in the current products snapshot.
	ErrProductNotFound = errors.New("product not found")
	// ErrEditInProgress is returned by BeginEdit while another product has a draft.
	ErrEditInProgress = errors.New("another product is being edited")
)

// RemoteAPI is everything the session needs from the ERP API.
type RemoteAPI interface {
	EntityFetcher
	ProductWriter
	Analyzer
}

// Session owns one instance of every client-side state component.
type Session struct {
	Status    *StatusChannel
	Store     *EntityStore
	Overlay   *EditOverlay
	Mutations *MutationCoordinator
	Relay     *QueryRelay
	log       *slog.Logger
}

// NewSession は新しいSessionを生成します。
func NewSession(api RemoteAPI, inferenceTimeout time.Duration, logger *slog.Logger) *Session {
	status := NewStatusChannel()
	store := NewEntityStore(api, status, logger)
	overlay := NewEditOverlay(status)
	return &Session{
		Status:    status,
		Store:     store,
		Overlay:   overlay,
		Mutations: NewMutationCoordinator(api, store, status, overlay, logger),
		Relay:     NewQueryRelay(api, inferenceTimeout, logger),
		log:       logger.With("component", "session"),
	}
}

// Mount performs the initial load of every collection. Loads run in parallel
// and independently; the first failure is returned after all have finished.
func (s *Session) Mount(ctx context.Context) error {
	var g errgroup.Group
	for _, coll := range Collections {
		g.Go(func() error {
			return s.Store.Load(ctx, coll)
		})
	}
	err := g.Wait()
	if err != nil {
		s.log.WarnContext(ctx, "初回ロードに失敗したコレクションがあります", slog.String("error", err.Error()))
	} else {
		s.log.InfoContext(ctx, "🟢 初回ロード完了")
	}
	return err
}

// BeginEdit 正規リストの商品から下書きを開始
func (s *Session) BeginEdit(id int) error {
	product, ok := s.Store.Product(id)
	if !ok {
		return ErrProductNotFound
	}
	if !s.Overlay.BeginEdit(product) {
		return ErrEditInProgress
	}
	return nil
}

// SubmitQuery relays text with the current sales snapshot.
func (s *Session) SubmitQuery(ctx context.Context, text string) error {
	return s.Relay.SubmitQuery(ctx, text, s.Store.Sales())
}

// State is a point-in-time view of the session for the presentation layer.
type State struct {
	Products []models.Product      `json:"products"`
	Sales    []models.SalesRecord  `json:"sales"`
	Status   *models.StatusMessage `json:"status"`
	Edit     *models.EditDraft     `json:"edit"`
	Chat     models.ChatExchange   `json:"chat"`
}

// Snapshot 現在のセッション状態を取得
func (s *Session) Snapshot() State {
	state := State{
		Products: s.Store.Products(),
		Sales:    s.Store.Sales(),
		Status:   s.Status.Current(),
		Chat:     s.Relay.Exchange(),
	}
	if draft, ok := s.Overlay.Active(); ok {
		state.Edit = &draft
	}
	return state
}
