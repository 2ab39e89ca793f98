// Package events carries change notifications for orders and products between writers and the
// admin live feed.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const Topic = "storefront-events"

type Type string

const (
	OrderCreated       Type = "orders.created"
	OrderStatusChanged Type = "orders.status_changed"
	ProductsChanged    Type = "products.changed"
)

type Event struct {
	Type        Type            `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Family is the collection an event belongs to, e.g. "orders" for orders.created.
func (e Event) Family() string {
	family, _, _ := strings.Cut(string(e.Type), ".")
	return family
}

// New builds an event, encoding payload as JSON.
func New(t Type, aggregateID string, payload any) (Event, error) {
	ev := Event{Type: t, AggregateID: aggregateID, OccurredAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = raw
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Handler func(ctx context.Context, ev Event)
