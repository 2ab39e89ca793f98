package checkout

import (
	"context"
	"sync"

	"github.com/fjod/butchershop/internal/domain"
)

// MockOrderCreator records created orders and deduplicates on the user and idempotency key.
type MockOrderCreator struct {
	mu      sync.RWMutex
	Err     error
	Orders  []*domain.Order
	byKey   map[string]*domain.Order
	block   chan struct{}
	entered chan struct{}
}

func NewMockOrderCreator() *MockOrderCreator {
	return &MockOrderCreator{byKey: make(map[string]*domain.Order)}
}

func (m *MockOrderCreator) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockOrderCreator) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if existing, ok := m.byKey[order.UserID+"/"+order.IdempotencyKey]; ok {
		return existing, nil
	}
	stored := *order
	m.byKey[order.UserID+"/"+order.IdempotencyKey] = &stored
	m.Orders = append(m.Orders, &stored)
	return &stored, nil
}

func (m *MockOrderCreator) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Orders)
}
