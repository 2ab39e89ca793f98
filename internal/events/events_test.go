package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestNew_EncodesPayload(t *testing.T) {
	ev, err := New(OrderStatusChanged, "order-1", map[string]string{"status": "Completed"})
	assert.NilError(t, err)
	assert.Equal(t, ev.Type, OrderStatusChanged)
	assert.Equal(t, ev.AggregateID, "order-1")
	assert.Assert(t, !ev.OccurredAt.IsZero())

	var payload map[string]string
	assert.NilError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, payload["status"], "Completed")
}

func TestNew_NilPayload(t *testing.T) {
	ev, err := New(ProductsChanged, "p1", nil)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(ev.Payload, 0))
}

func TestFamily(t *testing.T) {
	assert.Equal(t, Event{Type: OrderCreated}.Family(), "orders")
	assert.Equal(t, Event{Type: OrderStatusChanged}.Family(), "orders")
	assert.Equal(t, Event{Type: ProductsChanged}.Family(), "products")
}

func TestEncodeDecodeMessage(t *testing.T) {
	ev := Event{
		Type:        OrderCreated,
		AggregateID: "order-1",
		Payload:     json.RawMessage(`{"total":350}`),
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg := encodeMessage(ev)
	assert.Equal(t, string(msg.Key), "order-1")

	got, err := decodeMessage(msg)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, ev)
}

func TestDecodeMessage_MissingType(t *testing.T) {
	_, err := decodeMessage(kafka.Message{Key: []byte("x"), Value: []byte("{}")})
	assert.ErrorContains(t, err, "event_type")
}

func TestLocalPublisher_DeliversToEverySubscriber(t *testing.T) {
	p := NewLocalPublisher()
	var first, second []Type
	p.Subscribe(func(_ context.Context, ev Event) { first = append(first, ev.Type) })
	p.Subscribe(func(_ context.Context, ev Event) { second = append(second, ev.Type) })

	assert.NilError(t, p.Publish(context.Background(), Event{Type: OrderCreated}))
	assert.NilError(t, p.Publish(context.Background(), Event{Type: ProductsChanged}))

	assert.DeepEqual(t, first, []Type{OrderCreated, ProductsChanged})
	assert.DeepEqual(t, second, first)
	assert.NilError(t, p.Close())
}

func TestLocalPublisher_NoSubscribers(t *testing.T) {
	assert.NilError(t, NewLocalPublisher().Publish(context.Background(), Event{Type: OrderCreated}))
}
