package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type conn struct {
	id   int64
	wc   *websocket.Conn
	send chan []byte
	once sync.Once
	mu   sync.Mutex
	done bool
}

// push queues a snapshot. When the client lags, the oldest queued snapshot is dropped since
// every message carries the full list.
func (c *conn) push(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.done = true
		close(c.send)
		c.mu.Unlock()
	})
}

// read discards client frames; it returns once the client disconnects.
func (c *conn) read() {
	for {
		if _, _, err := c.wc.NextReader(); err != nil {
			return
		}
	}
}

func (c *conn) write(t *time.Ticker) {
	defer c.wc.Close()
Outer:
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				break Outer
			}
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-t.C:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
	c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.wc.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
