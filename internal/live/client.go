package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected dashboard session. Its context is cancelled when
// the connection is dropped, ending any in-flight fetches.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	sub    *subscription
	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.Mutex
	closed  bool
}

// sendMessage queues an outbound message, dropping it if the client is gone
// or cannot keep up. The closed check and the send happen under the same
// lock as closeSend, so a fetch resolving after disconnect can never send on
// the closed channel.
func (c *client) sendMessage(msg outMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// closeSend closes the send channel exactly once and cancels the client
// context. Safe to call from both drop and closeAll.
func (c *client) closeSend() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.cancel != nil {
		c.cancel()
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
