// Package live pushes full snapshots over websockets: order and product lists to admin clients,
// and a shopper's own cart to every open view of that cart.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/events"
)

const (
	TopicOrders   = "orders"
	TopicProducts = "products"
	TopicCart     = "cart"

	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	snapshotWait = 10 * time.Second
	sendBuffer   = 4
)

var ErrUnknownTopic = errors.New("unknown live topic")

// Lister loads the current full list for a topic.
type Lister func(ctx context.Context) (any, error)

// Message is what clients receive on every change.
type Message struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Feed starts delivering the values of a private stream to push and returns a func that stops it.
// push never blocks.
type Feed func(push func(data any)) (cancel func())

type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Int64

	mu      sync.Mutex
	listers map[string]Lister
	conns   map[string]map[int64]*conn
	closed  bool
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		listers: make(map[string]Lister),
		conns:   make(map[string]map[int64]*conn),
	}
}

// Register attaches the snapshot source for a topic. Call before serving.
func (h *Hub) Register(topic string, l Lister) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listers[topic] = l
	if h.conns[topic] == nil {
		h.conns[topic] = make(map[int64]*conn)
	}
}

func (h *Hub) Has(topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.listers[topic]
	return ok
}

// Subscribers returns how many clients are attached to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[topic])
}

// HandleEvent refreshes the topic an event belongs to. It matches events.Handler.
func (h *Hub) HandleEvent(ctx context.Context, ev events.Event) {
	topic := ev.Family()
	if !h.Has(topic) {
		return
	}
	if err := h.Refresh(ctx, topic); err != nil {
		h.log.Warn("live refresh failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Refresh loads the topic's list and pushes it to every subscriber.
func (h *Hub) Refresh(ctx context.Context, topic string) error {
	if h.Subscribers(topic) == 0 {
		return nil
	}
	msg, err := h.snapshot(ctx, topic)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns[topic] {
		c.push(msg)
	}
	return nil
}

// Serve upgrades the request and streams topic snapshots until the client goes away.
func (h *Hub) Serve(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.Has(topic) {
			http.Error(w, ErrUnknownTopic.Error(), http.StatusNotFound)
			return
		}
		wc, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("live upgrade failed", zap.Error(err))
			return
		}

		c := &conn{id: h.nextID.Add(1), wc: wc, send: make(chan []byte, sendBuffer)}
		if !h.signon(topic, c) {
			wc.Close()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), snapshotWait)
		msg, err := h.snapshot(ctx, topic)
		cancel()
		if err != nil {
			h.log.Warn("live initial snapshot failed", zap.String("topic", topic), zap.Error(err))
		} else {
			c.push(msg)
		}

		h.pump(topic, c)
	}
}

// Stream upgrades the request and forwards every value of feed to this client alone.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, topic string, feed Feed) {
	wc, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("live upgrade failed", zap.Error(err))
		return
	}

	c := &conn{id: h.nextID.Add(1), wc: wc, send: make(chan []byte, sendBuffer)}
	if !h.signon(topic, c) {
		wc.Close()
		return
	}

	stop := feed(func(data any) {
		msg, err := encode(topic, data)
		if err != nil {
			h.log.Warn("live encode failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		c.push(msg)
	})
	defer stop()

	h.pump(topic, c)
}

// pump runs the connection until the client disconnects.
func (h *Hub) pump(topic string, c *conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	go c.write(t)
	c.read()
	h.signoff(topic, c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for topic, conns := range h.conns {
		for id, c := range conns {
			c.close()
			delete(conns, id)
		}
		h.conns[topic] = conns
	}
}

func (h *Hub) snapshot(ctx context.Context, topic string) ([]byte, error) {
	h.mu.Lock()
	lister := h.listers[topic]
	h.mu.Unlock()
	if lister == nil {
		return nil, ErrUnknownTopic
	}

	data, err := lister(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", topic, err)
	}
	return encode(topic, data)
}

func encode(topic string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", topic, err)
	}
	return json.Marshal(Message{Topic: topic, Data: raw})
}

func (h *Hub) signon(topic string, c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.conns[topic] == nil {
		h.conns[topic] = make(map[int64]*conn)
	}
	h.conns[topic][c.id] = c
	return true
}

func (h *Hub) signoff(topic string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[topic][c.id]; ok {
		delete(h.conns[topic], c.id)
		c.close()
	}
}
