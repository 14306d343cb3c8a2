package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Doaky/pi-alarm-block/internal/logger"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 5 * time.Second
	// pongWait is how long a client may stay silent before it is dropped.
	pongWait = 30 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 20 * time.Second
	// clientSendBuffer bounds the per-client outbound queue.
	clientSendBuffer = 32
)

// client is one WebSocket connection with its outbound queue.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	// send carries frames to writePump. Closed exactly once by close.
	send chan []byte

	closeOnce  sync.Once
	remoteAddr string
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *client {
	return &client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, clientSendBuffer),
		remoteAddr: remoteAddr,
	}
}

// close shuts the connection down and releases writePump.
func (c *client) close() {
	c.closeOnce.Do(func() {
		// conn is nil for hub tests that skip network I/O.
		if c.conn != nil {
			_ = c.conn.Close()
		}

		close(c.send)
	})
}

// closeGraceful queues one final frame and closes the send queue, so
// writePump flushes the frame and the close handshake before the
// connection goes down.
func (c *client) closeGraceful(frame []byte) {
	c.closeOnce.Do(func() {
		select {
		case c.send <- frame:
		default:
		}

		close(c.send)
	})
}

// writePump drains the send queue to the socket and keeps the connection
// alive with pings. It exits on write error or when send is closed.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// Queue closed after a graceful disconnect; finish the
				// handshake and drop the connection.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				_ = c.conn.Close()

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.DebugKV(ctx, "WebSocket write failed", "remote_addr", c.remoteAddr, "error", err)
				}

				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages to service control frames and detect
// disconnects, then unregisters the client.
func (c *client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugKV(ctx, "WebSocket read ended", "remote_addr", c.remoteAddr, "error", err)
			}

			c.hub.unregister <- c

			return
		}
	}
}
