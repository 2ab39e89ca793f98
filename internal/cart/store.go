// Package cart holds the shopping cart of a browsing client. The cart is an ordered sequence of
// product snapshots without quantities and is re-persisted in full after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/storage"
)

// KeyPrefix is the storage key prefix of a persisted cart, completed with the session id.
const KeyPrefix = "butcherShopCart"

var (
	// ErrPersist marks a mutation that was applied in memory but could not be written to storage.
	ErrPersist = errors.New("cart could not be saved")
	// ErrLoad means storage could not be read. The store stays unloaded so a later Load retries
	// instead of overwriting the persisted cart with an empty one.
	ErrLoad = errors.New("cart could not be loaded")
)

func StorageKey(sessionID string) string {
	return fmt.Sprintf("%s:%s", KeyPrefix, sessionID)
}

// Store is safe for concurrent use. Subscribers are invoked synchronously while the store is
// locked and must not call back into it.
type Store struct {
	mu      sync.Mutex
	key     string
	storage storage.Storage
	log     *zap.Logger

	items  []domain.CartItem
	loaded bool

	subs    map[int]func([]domain.CartItem)
	nextSub int

	lastUsed atomic.Int64
}

func NewStore(key string, st storage.Storage, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		key:     key,
		storage: st,
		log:     log.With(zap.String("cart_key", key)),
		items:   []domain.CartItem{},
		subs:    make(map[int]func([]domain.CartItem)),
	}
	s.touch()
	return s
}

// Load hydrates the cart from storage once. Missing or corrupt data leaves the cart empty; a
// failed read returns ErrLoad and is retried on the next call.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.loaded = true
		return nil
	}
	if err != nil {
		s.log.Warn("cart load failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	s.loaded = true

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("corrupt persisted cart, starting empty", zap.Error(err))
		return nil
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	s.items = items
	return nil
}

// Add appends item. The same product may be present several times.
func (s *Store) Add(ctx context.Context, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	return s.commit(ctx)
}

// Remove drops every entry whose ID equals id. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = removeAll(s.items, id)
	return s.commit(ctx)
}

// Toggle removes the product if it is in the cart and adds it otherwise. It reports whether
// the product was added.
func (s *Store) Toggle(ctx context.Context, item domain.CartItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := !containsID(s.items, item.ID)
	if added {
		s.items = append(s.items, item)
	} else {
		s.items = removeAll(s.items, item.ID)
	}
	return added, s.commit(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartItem{}
	return s.commit(ctx)
}

func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return containsID(s.items, id)
}

// Items returns a copy of the cart in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.snapshot()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total is recomputed from the current items on every call.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SumPrices(s.items)
}

// Subscribe calls fn with the current cart and then again after every mutation. The returned
// func unsubscribes.
func (s *Store) Subscribe(fn func([]domain.CartItem)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	fn(s.snapshot())

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// commit persists the full sequence and notifies subscribers. A persist failure is returned but
// the in-memory state is kept; the next successful mutation rewrites the whole array.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context) error {
	s.touch()

	for _, fn := range s.subs {
		fn(s.snapshot())
	}

	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.log.Warn("cart persist failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) snapshot() []domain.CartItem {
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) watched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

func (s *Store) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func containsID(items []domain.CartItem, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func removeAll(items []domain.CartItem, id string) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
