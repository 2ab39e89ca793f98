package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	sweepInterval     = time.Minute
)

// Sessions keeps at most one flow per user. Flows are discarded on completion, on Abandon
// or once idle for longer than the TTL. Completed flows left behind are dropped on the next sweep.
type Sessions struct {
	orders OrderCreator
	log    *zap.Logger
	ttl    time.Duration

	mu    sync.Mutex
	flows map[string]*Flow

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSessions(orders OrderCreator, ttl time.Duration, log *zap.Logger) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sessions{
		orders: orders,
		log:    log,
		ttl:    ttl,
		flows:  make(map[string]*Flow),
		stop:   make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s
}

// Begin starts a new flow for the identity, replacing any earlier one unless that one is submitting.
func (s *Sessions) Begin(identity *domain.Identity, profile *domain.Profile, cart Cart, idempotencyKey string) (*Flow, error) {
	flow, err := Begin(identity, profile, cart, s.orders, idempotencyKey, s.log)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.flows[identity.UserID]; ok && existing.State() == StateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	s.flows[identity.UserID] = flow
	return flow, nil
}

func (s *Sessions) Get(userID string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[userID]
	if !ok {
		return nil, ErrNoFlow
	}
	return flow, nil
}

// PlaceOrder submits the user's flow and forgets it once the order exists.
func (s *Sessions) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	flow, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	order, err := flow.PlaceOrder(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.flows[userID] == flow {
		delete(s.flows, userID)
	}
	s.mu.Unlock()
	return order, nil
}

// Abandon drops the user's flow. A flow that is submitting is kept until the submission resolves.
func (s *Sessions) Abandon(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[userID]
	if !ok {
		return ErrNoFlow
	}
	if flow.State() == StateSubmitting {
		return ErrSubmissionInFlight
	}
	delete(s.flows, userID)
	return nil
}

func (s *Sessions) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Sessions) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *Sessions) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for userID, flow := range s.flows {
		state := flow.State()
		if state == StateSubmitting {
			continue
		}
		if state.IsTerminal() || now.Sub(flow.idleSince()) > s.ttl {
			delete(s.flows, userID)
			dropped++
		}
	}
	return dropped
}

// IsUserError reports whether err is an expected wizard outcome rather than a provider failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrProfilePending) ||
		errors.Is(err, ErrSubmissionInFlight) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrNoFlow)
}
