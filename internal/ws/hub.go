package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"rental-chat/internal/models"
	"rental-chat/internal/observability"
)

// Hub maintains active websocket clients keyed by connection id.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Remove forgets the client with connID.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit queues ev for connID. Unknown connections and full buffers drop the
// event.
func (h *Hub) Emit(connID string, ev models.OutboundEvent) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal outbound event", zap.String("event", ev.Event), zap.Error(err))
		return false
	}
	if !c.enqueue(payload) {
		observability.IncWSDropped()
		h.log.Warn("outbound event dropped", zap.String("event", ev.Event), zap.String("conn_id", connID))
		return false
	}
	return true
}

// Close disconnects every client. Their event loops run the usual cleanup.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
