// Package ws implements the WebSocket adapter that pushes checkpoint
// events to connected operator clients in real time.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds a single broadcast write so one stalled operator
// client cannot hold up event delivery to the others.
const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	ws *websocket.Conn
}

// Hub tracks connected operator clients and fans checkpoint events out to
// them. Clients only listen; anything they send is discarded.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]*client
	nextID  uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*client)}
}

// HandleWS upgrades the request and keeps the client registered until it
// disconnects. The handler blocks for the connection's lifetime.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.clients[id] = &client{ws: ws}
	h.mu.Unlock()

	slog.Info("operator client connected", "client", id, "remote", r.RemoteAddr)

	// CloseRead discards inbound frames and cancels the context when the
	// peer goes away.
	ctx := ws.CloseRead(r.Context())
	<-ctx.Done()

	h.drop(id)
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// Broadcast sends a message to every connected client. Clients that fail
// or stall past the write timeout are dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	targets := make(map[uint64]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.Unlock()

	for id, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "client", id, "error", err)
			h.drop(id)
		}
	}
}

// ConnectionCount returns the number of connected operator clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		slog.Info("operator client disconnected", "client", id)
	}
}
