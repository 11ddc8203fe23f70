package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/models"
)

// Collection リモートAPIのコレクション名
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionSales    Collection = "sales"
)

// Collections 初回ロード対象のすべてのコレクション
var Collections = []Collection{CollectionProducts, CollectionSales}

// ErrUnknownCollection is returned for a collection name the store does not hold.
var ErrUnknownCollection = errors.New("unknown collection")

// ParseCollection 文字列からCollectionを取得
func ParseCollection(name string) (Collection, error) {
	switch Collection(name) {
	case CollectionProducts, CollectionSales:
		return Collection(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// EntityFetcher reads full collections from the remote API.
type EntityFetcher interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListSales(ctx context.Context) ([]models.SalesRecord, error)
}

// snapshot is one collection's canonical list plus its load sequencing.
// requested counts issued loads; resolved is the newest sequence whose
// outcome has been applied. Outcomes older than resolved are dropped.
type snapshot[T any] struct {
	items     []T
	loaded    bool
	requested uint64
	resolved  uint64
}

// EntityStore はリモートAPIから取得したエンティティの正規リストを保持します。
// スナップショットは常に全件置換で更新され、部分的なマージは行いません。
type EntityStore struct {
	fetcher EntityFetcher
	status  *StatusChannel
	log     *slog.Logger

	mu       sync.RWMutex
	products snapshot[models.Product]
	sales    snapshot[models.SalesRecord]

	subMu       sync.Mutex
	subscribers map[int]func(Collection)
	nextSubID   int
}

// NewEntityStore は新しいEntityStoreを生成します。
func NewEntityStore(fetcher EntityFetcher, status *StatusChannel, logger *slog.Logger) *EntityStore {
	return &EntityStore{
		fetcher:     fetcher,
		status:      status,
		log:         logger.With("component", "entity_store"),
		subscribers: make(map[int]func(Collection)),
	}
}

// Load fetches the full list for the collection and replaces the snapshot.
// On failure the previous snapshot is kept and an error StatusMessage is set.
func (s *EntityStore) Load(ctx context.Context, coll Collection) error {
	switch coll {
	case CollectionProducts:
		return loadInto(ctx, s, coll, &s.products, s.fetcher.ListProducts)
	case CollectionSales:
		return loadInto(ctx, s, coll, &s.sales, s.fetcher.ListSales)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, coll)
}

func loadInto[T any](ctx context.Context, s *EntityStore, coll Collection, snap *snapshot[T], fetch func(context.Context) ([]T, error)) error {
	s.mu.Lock()
	snap.requested++
	seq := snap.requested
	s.mu.Unlock()

	items, err := fetch(ctx)

	s.mu.Lock()
	if seq < snap.resolved {
		s.mu.Unlock()
		s.log.DebugContext(ctx, "古いレスポンスを破棄しました", slog.String("collection", string(coll)), slog.Uint64("seq", seq))
		return nil
	}
	snap.resolved = seq
	if err != nil {
		s.mu.Unlock()
		failure := apiclient.AsFailure(err)
		s.status.loadError(coll, fmt.Sprintf("Failed to load %s: %s", coll, failure.Detail()))
		s.log.WarnContext(ctx, "コレクションの取得に失敗", slog.String("collection", string(coll)), slog.String("error", failure.Detail()))
		return failure
	}
	if items == nil {
		items = []T{}
	}
	snap.items = items
	snap.loaded = true
	s.mu.Unlock()

	s.status.clearErrorAfterLoad(coll)
	s.log.InfoContext(ctx, "📦 コレクションを更新しました", slog.String("collection", string(coll)), slog.Int("count", len(items)))
	s.notify(coll)
	return nil
}

// Products 商品スナップショットのコピーを取得
func (s *EntityStore) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product{}, s.products.items...)
}

// Product looks up a single canonical product by id.
func (s *EntityStore) Product(id int) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products.items {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Sales 売上スナップショットのコピーを取得
func (s *EntityStore) Sales() []models.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SalesRecord{}, s.sales.items...)
}

// Loaded reports whether the collection has completed at least one successful load.
func (s *EntityStore) Loaded(coll Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch coll {
	case CollectionProducts:
		return s.products.loaded
	case CollectionSales:
		return s.sales.loaded
	}
	return false
}

// Subscribe registers fn to be called after every snapshot replace.
// The returned func removes the subscription.
func (s *EntityStore) Subscribe(fn func(Collection)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *EntityStore) notify(coll Collection) {
	s.subMu.Lock()
	fns := make([]func(Collection), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(coll)
	}
}
