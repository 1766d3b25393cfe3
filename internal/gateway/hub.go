// Package gateway streams trade alerts to WebSocket subscribers
// (dashboards, tooling). It is a pure fan-out surface: slow or dead
// clients are dropped, never allowed to block the trading path.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"algotradingv1/internal/model"

	"github.com/gorilla/websocket"
)

const recentAlertsMax = 100

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard runs on a different origin during development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients and fans trade events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// Ring of recent envelopes replayed to newly connected clients.
	recent [][]byte
	seq    int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Broadcast sends a trade record to all connected clients. Clients with
// a full send queue are skipped; the write pump drops them on close.
func (h *Hub) Broadcast(rec model.TradeRecord) {
	h.mu.Lock()
	h.seq++
	envelope, err := json.Marshal(map[string]interface{}{
		"type": "trade",
		"seq":  h.seq,
		"data": rec,
		"ts":   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		h.mu.Unlock()
		log.Printf("[gateway] marshal trade envelope: %v", err)
		return
	}
	h.recent = append(h.recent, envelope)
	if len(h.recent) > recentAlertsMax {
		h.recent = h.recent[len(h.recent)-recentAlertsMax:]
	}

	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades an HTTP request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	replay := make([][]byte, len(h.recent))
	copy(replay, h.recent)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState(replay)
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
