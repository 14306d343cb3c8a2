package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Doaky/pi-alarm-block/internal/logger"
)

const (
	// broadcastBuffer bounds the hub's inbound frame queue.
	broadcastBuffer = 128
	// registerBuffer bounds the register and unregister queues.
	registerBuffer = 16
)

// Hub tracks connected WebSocket clients and fans broadcast frames out to
// them. All client bookkeeping happens on the Run goroutine; Broadcast
// never blocks and drops frames when the queue is full.
type Hub struct {
	// broadcast carries serialized JSON frames to fan out.
	broadcast chan []byte
	// register and unregister carry client lifecycle events to Run.
	register   chan *client
	unregister chan *client

	// mu protects clients.
	mu sync.Mutex
	// clients holds the currently connected clients.
	clients map[*client]struct{}

	// upgrader performs the HTTP to WebSocket handshake. The UI is served
	// from the same device, so cross-origin requests are allowed.
	upgrader websocket.Upgrader
}

// NewHub constructs a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *client, registerBuffer),
		unregister: make(chan *client, registerBuffer),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run processes hub events until ctx is canceled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	logger.Info(ctx, "WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logger.Info(ctx, "WebSocket hub stopped")

			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			logger.InfoKV(ctx, "WebSocket client connected", "remote_addr", c.remoteAddr, "clients", count)
		case c := <-h.unregister:
			h.remove(ctx, c, "disconnect")
		case frame := <-h.broadcast:
			// Collect slow clients first so the map is not mutated mid-range.
			var slow []*client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(ctx, c, "send buffer full")
			}
		}
	}
}

// Broadcast enqueues a serialized frame for delivery to every client. It
// never blocks; a full hub queue drops the frame with a warning.
func (h *Hub) Broadcast(ctx context.Context, frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		logger.WarnKV(ctx, "WebSocket broadcast queue full, dropping frame", "bytes", len(frame))
	}
}

// Shutdown hands a final frame to every client and disconnects them. It
// runs on the caller's goroutine and bypasses the broadcast queue, so the
// frame cannot be lost to Run observing cancellation first.
func (h *Hub) Shutdown(ctx context.Context, frame []byte) {
	h.mu.Lock()

	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}

	h.mu.Unlock()

	for _, c := range clients {
		c.closeGraceful(frame)
	}

	logger.InfoKV(ctx, "WebSocket clients disconnected for shutdown", "clients", len(clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the new client. The pumps
// deliberately do not use the request context: net/http cancels it when
// this handler returns, which would tear the connection down immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(r.Context(), "WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)

		return
	}

	c := newClient(h, conn, r.RemoteAddr)
	h.register <- c

	go c.writePump(context.Background())
	go c.readPump(context.Background())
}

// remove drops a client from the hub and closes its connection.
func (h *Hub) remove(ctx context.Context, c *client, reason string) {
	h.mu.Lock()

	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}

	count := len(h.clients)

	h.mu.Unlock()

	if !ok {
		return
	}

	c.close()
	logger.InfoKV(ctx, "WebSocket client removed", "remote_addr", c.remoteAddr, "reason", reason, "clients", count)
}

// closeAll disconnects every client on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
