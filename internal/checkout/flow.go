// Package checkout runs the two-step wizard that turns a cart into a persisted order.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
)

// Cart is the part of the cart store the flow reads at submission time and clears on success.
type Cart interface {
	Items() []domain.CartItem
	Total() int64
	Clear(ctx context.Context) error
}

// OrderCreator persists orders. Creating an order with an idempotency key that was already used
// returns the order stored under that key.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

// Flow is one user's pass through the wizard. All methods are safe for concurrent use.
type Flow struct {
	mu       sync.Mutex
	identity domain.Identity
	profile  *domain.Profile
	cart     Cart
	orders   OrderCreator
	log      *zap.Logger

	state          State
	idempotencyKey string
	lastErr        error
	order          *domain.Order
	touchedAt      time.Time
}

// View is a point-in-time copy of a flow for rendering.
type View struct {
	State          State             `json:"state"`
	Profile        *domain.Profile   `json:"profile"`
	ProfilePending bool              `json:"profile_pending"`
	Items          []domain.CartItem `json:"items"`
	Total          int64             `json:"total"`
	IdempotencyKey string            `json:"idempotency_key"`
	LastError      string            `json:"last_error,omitempty"`
	Order          *domain.Order     `json:"order,omitempty"`
}

// Begin enters the wizard at address review. Identity is checked here only.
// An empty idempotencyKey gets a generated one that stays fixed for the flow.
func Begin(identity *domain.Identity, profile *domain.Profile, cart Cart, orders OrderCreator, idempotencyKey string, log *zap.Logger) (*Flow, error) {
	if identity == nil || identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		identity:       *identity,
		profile:        profile,
		cart:           cart,
		orders:         orders,
		log:            log.With(zap.String("user_id", identity.UserID), zap.String("idempotency_key", idempotencyKey)),
		state:          StateAddressReview,
		idempotencyKey: idempotencyKey,
		touchedAt:      time.Now(),
	}, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) IdempotencyKey() string {
	return f.idempotencyKey
}

// SetProfile replaces the profile shown at address review, e.g. once it finished loading.
func (f *Flow) SetProfile(p *domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
	f.touchedAt = time.Now()
}

// Continue moves from address review to order review. It is blocked while no profile exists.
func (f *Flow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchedAt = time.Now()

	if f.state == StateAddressReview && f.profile == nil {
		return ErrProfilePending
	}
	return f.transition(StateOrderReview)
}

// Back returns to address review. The cart is not touched.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchedAt = time.Now()

	return f.transition(StateAddressReview)
}

// PlaceOrder builds an order from the current cart and profile and hands it to the order creator.
// On success the cart is cleared and the flow completes. On failure the cart is kept and the flow
// returns to order review so that the user can retry with the same idempotency key.
func (f *Flow) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	f.mu.Lock()
	f.touchedAt = time.Now()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if err := f.checkTransition(StateSubmitting); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.profile == nil {
		f.mu.Unlock()
		return nil, ErrProfilePending
	}

	items := f.cart.Items()
	if len(items) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	order := &domain.Order{
		ID:             uuid.NewString(),
		UserID:         f.identity.UserID,
		UserName:       f.profile.FullName,
		UserAddress:    f.profile.DeliveryAddress(),
		Items:          items,
		Total:          f.cart.Total(),
		Status:         domain.OrderStatusProcessing,
		IdempotencyKey: f.idempotencyKey,
	}
	f.state = StateSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	created, err := f.orders.CreateOrder(ctx, order)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = StateFailed
		f.lastErr = err
		f.log.Warn("order submission failed", zap.Error(err))
		if errT := f.transition(StateOrderReview); errT != nil {
			f.log.Error("failed checkout could not return to review", zap.Error(errT))
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	if errClear := f.cart.Clear(ctx); errClear != nil {
		f.log.Warn("cart clear after order failed", zap.String("order_id", created.ID), zap.Error(errClear))
	}
	f.state = StateCompleted
	f.order = created
	f.lastErr = nil
	f.log.Info("order placed", zap.String("order_id", created.ID), zap.Int64("total", created.Total))
	return created, nil
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		State:          f.state,
		ProfilePending: f.profile == nil,
		Items:          f.cart.Items(),
		Total:          f.cart.Total(),
		IdempotencyKey: f.idempotencyKey,
		Order:          f.order,
	}
	if f.profile != nil {
		p := *f.profile
		v.Profile = &p
	}
	if f.lastErr != nil {
		v.LastError = f.lastErr.Error()
	}
	return v
}

func (f *Flow) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touchedAt
}

// Callers hold f.mu.
func (f *Flow) transition(to State) error {
	if err := f.checkTransition(to); err != nil {
		return err
	}
	f.state = to
	return nil
}

func (f *Flow) checkTransition(to State) error {
	if !CanTransitionTo(f.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, f.state, to)
	}
	return nil
}
