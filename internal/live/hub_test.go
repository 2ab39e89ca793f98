package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/events"
)

func startHub(t *testing.T, topic string, l Lister) (*Hub, string) {
	t.Helper()
	h := NewHub(zap.NewNop())
	h.Register(topic, l)
	srv := httptest.NewServer(h.Serve(topic))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, wc *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, wc.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := wc.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestServe_PushesSnapshotOnConnectAndOnChange(t *testing.T) {
	var version atomic.Int32
	h, url := startHub(t, TopicOrders, func(ctx context.Context) (any, error) {
		return []string{"order-" + string(rune('a'+version.Load()))}, nil
	})

	wc, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer wc.Close()

	msg := readMessage(t, wc)
	assert.Equal(t, TopicOrders, msg.Topic)
	assert.JSONEq(t, `["order-a"]`, string(msg.Data))

	version.Store(1)
	ev, err := events.New(events.OrderCreated, "o1", nil)
	require.NoError(t, err)
	h.HandleEvent(context.Background(), ev)

	msg = readMessage(t, wc)
	assert.JSONEq(t, `["order-b"]`, string(msg.Data))
}

func TestHandleEvent_IgnoresOtherTopics(t *testing.T) {
	var calls atomic.Int32
	h, url := startHub(t, TopicOrders, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return []string{}, nil
	})

	wc, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer wc.Close()
	readMessage(t, wc)

	ev, err := events.New(events.ProductsChanged, "p1", nil)
	require.NoError(t, err)
	h.HandleEvent(context.Background(), ev)

	assert.Equal(t, int32(1), calls.Load())
}

func TestRefresh_NoSubscribersSkipsListing(t *testing.T) {
	h := NewHub(zap.NewNop())
	var calls atomic.Int32
	h.Register(TopicProducts, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("should not be called")
	})

	require.NoError(t, h.Refresh(context.Background(), TopicProducts))
	assert.Zero(t, calls.Load())
}

func TestServe_UnknownTopic(t *testing.T) {
	h := NewHub(zap.NewNop())
	rec := httptest.NewRecorder()
	h.Serve("customers")(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_SignoffOnDisconnect(t *testing.T) {
	h, url := startHub(t, TopicProducts, func(ctx context.Context) (any, error) {
		return []string{"wings"}, nil
	})

	wc, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readMessage(t, wc)
	assert.Equal(t, 1, h.Subscribers(TopicProducts))

	wc.Close()
	require.Eventually(t, func() bool { return h.Subscribers(TopicProducts) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStream_ForwardsFeedToClient(t *testing.T) {
	h := NewHub(zap.NewNop())
	pushes := make(chan func(any), 1)
	stopped := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, r, TopicCart, func(push func(any)) func() {
			push([]string{"wings"})
			pushes <- push
			return func() { close(stopped) }
		})
	}))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})

	wc, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	msg := readMessage(t, wc)
	assert.Equal(t, TopicCart, msg.Topic)
	assert.JSONEq(t, `["wings"]`, string(msg.Data))

	push := <-pushes
	push([]string{"wings", "eggs"})
	msg = readMessage(t, wc)
	assert.JSONEq(t, `["wings","eggs"]`, string(msg.Data))
	assert.Equal(t, 1, h.Subscribers(TopicCart))

	wc.Close()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("feed was not stopped after disconnect")
	}
	require.Eventually(t, func() bool { return h.Subscribers(TopicCart) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRefresh_TopicWithoutLister(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := &conn{id: 1, send: make(chan []byte, sendBuffer)}
	require.True(t, h.signon(TopicCart, c))

	assert.ErrorIs(t, h.Refresh(context.Background(), TopicCart), ErrUnknownTopic)
}
