package events

import (
	"context"
	"sync"
)

// LocalPublisher delivers events synchronously to in-process handlers. It stands in for Kafka when
// no brokers are configured.
type LocalPublisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{}
}

func (p *LocalPublisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *LocalPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (p *LocalPublisher) Close() error {
	return nil
}
