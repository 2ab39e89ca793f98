package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/butchershop/internal/storage"
)

const (
	DefaultIdleTTL  = 30 * time.Minute
	cleanupInterval = time.Minute
)

var ErrInvalidSession = errors.New("invalid cart session")

// Registry owns one Store per browsing session. Stores idle for longer than the TTL are dropped
// from memory unless someone is subscribed; their persisted data stays in storage and is hydrated
// again on next access.
type Registry struct {
	storage storage.Storage
	log     *zap.Logger
	idleTTL time.Duration

	mu     sync.Mutex
	stores map[string]*Store
	sfg    singleflight.Group

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewRegistry(st storage.Storage, idleTTL time.Duration, log *zap.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		storage:     st,
		log:         log,
		idleTTL:     idleTTL,
		stores:      make(map[string]*Store),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Get returns the hydrated store for sessionID. Concurrent first accesses share one hydration.
// A store whose hydration failed is not kept.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	r.mu.Lock()
	s, ok := r.stores[sessionID]
	r.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		r.mu.Lock()
		if s, ok := r.stores[sessionID]; ok {
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		s := NewStore(StorageKey(sessionID), r.storage, r.log)
		if err := s.Load(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.stores[sessionID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCleanup) })
	r.wg.Wait()
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now())
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.stores {
		if now.Sub(s.idleSince()) > r.idleTTL && !s.watched() {
			delete(r.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.log.Debug("evicted idle carts", zap.Int("count", evicted))
	}
	return evicted
}
