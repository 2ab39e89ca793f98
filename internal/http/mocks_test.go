package http

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/events"
	"github.com/fjod/butchershop/internal/geo"
	"github.com/fjod/butchershop/internal/live"
	ordersrepo "github.com/fjod/butchershop/internal/orders/repository"
	"github.com/fjod/butchershop/internal/products"
	productsrepo "github.com/fjod/butchershop/internal/products/repository"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
	"github.com/fjod/butchershop/internal/storage"
)

const adminEmail = "owner@butchershop.in"

type MockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func (m *MockAccountStore) CreateAccount(_ context.Context, a *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Email]; ok {
		return auth.ErrEmailTaken
	}
	m.accounts[a.Email] = a
	return nil
}

func (m *MockAccountStore) GetAccountByEmail(_ context.Context, email string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return a, nil
}

type MockProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func (m *MockProfileRepository) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, profilesrepo.ErrProfileNotFound
	}
	return &p, nil
}

func (m *MockProfileRepository) SaveProfile(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *p
	stored.Role = m.profiles[p.UserID].Role
	m.profiles[p.UserID] = stored
	return nil
}

// MockOrderRepository keeps orders in memory and deduplicates on the idempotency key.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	byKey  map[string]*domain.Order
	seq    int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
		byKey:  make(map[string]*domain.Order),
	}
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byKey[o.UserID+"/"+o.IdempotencyKey]; ok {
		return existing, nil
	}
	m.seq++
	stored := *o
	stored.CreatedAt = time.Unix(int64(m.seq), 0)
	m.orders[stored.ID] = &stored
	m.byKey[stored.UserID+"/"+stored.IdempotencyKey] = &stored
	return &stored, nil
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ordersrepo.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	all, _ := m.ListOrders(ctx)
	out := make([]*domain.Order, 0, len(all))
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) ListOrders(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ordersrepo.ErrOrderNotFound
	}
	o.Status = status
	return o, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, _ string) (domain.Location, error) {
	return domain.Location{Lat: 23.07, Lng: 70.13}, nil
}

type testEnv struct {
	server   *httptest.Server
	orders   *MockOrderRepository
	profiles *MockProfileRepository
	products *products.Service
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	authSvc := auth.NewService(
		&MockAccountStore{accounts: make(map[string]*auth.Account)},
		&auth.Bcrypt{Cost: bcrypt.MinCost},
		auth.NewIssuer("test-secret", time.Hour),
		auth.NewRedisRevoker(rdb),
		nil,
	)

	repo, err := productsrepo.NewRepository(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { repo.Close() })
	productSvc := products.NewService(repo, events.NewLocalPublisher(), nil)

	orders := NewMockOrderRepository()
	profiles := &MockProfileRepository{profiles: make(map[string]domain.Profile)}

	carts := cart.NewRegistry(storage.NewRedis(rdb, time.Hour), 0, nil)
	sessions := checkout.NewSessions(orders, 0, nil)
	trackers := geo.NewTrackers(stubGeocoder{}, 10*time.Millisecond, nil)
	hub := live.NewHub(zap.NewNop())
	hub.Register(live.TopicOrders, func(ctx context.Context) (any, error) { return orders.ListOrders(ctx) })
	t.Cleanup(func() {
		carts.Close()
		sessions.Close()
		trackers.Close()
		hub.Close()
	})

	router := NewRouter(RouterConfig{
		Auth:               authSvc,
		Products:           productSvc,
		Orders:             orders,
		Profiles:           profiles,
		Carts:              carts,
		Checkout:           sessions,
		Trackers:           trackers,
		Live:               hub,
		IsAdminEmail:       func(email string) bool { return email == adminEmail },
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		AuthRateRPS:        100,
		AuthRateBurst:      100,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, orders: orders, profiles: profiles, products: productSvc, redis: mr}
}

// client returns an HTTP client with its own cookie jar, i.e. a separate browser.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}
