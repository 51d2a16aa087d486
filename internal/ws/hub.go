// internal/ws/hub.go
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"otodealer-service/internal/service/pipeline"

	"go.uber.org/zap"
)

// Hub fans pipeline events out to dashboard connections. Clients are
// grouped by tenant; an event for one tenant never reaches another's
// connections.
type Hub struct {
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *tenantEvent
	done       chan struct{}

	logger *zap.Logger
}

type tenantEvent struct {
	tenantID string
	payload  []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tenantEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Publish implements pipeline.EventPublisher. Delivery is best effort; a
// full broadcast queue drops the event rather than stalling the turn.
func (h *Hub) Publish(tenantID string, ev pipeline.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("event marshal failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &tenantEvent{tenantID: tenantID, payload: payload}:
	default:
		h.logger.Warn("event feed backlogged, dropping event",
			zap.String("tenant_id", tenantID),
		)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.tenantID] == nil {
		h.clients[client.tenantID] = make(map[*Client]bool)
	}
	h.clients[client.tenantID][client] = true

	h.logger.Info("dashboard client connected",
		zap.String("tenant_id", client.tenantID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.tenantID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.tenantID)
			}

			h.logger.Info("dashboard client disconnected",
				zap.String("tenant_id", client.tenantID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) deliver(ev *tenantEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[ev.tenantID] {
		client.enqueue(ev.payload)
	}
}

func (h *Hub) ConnectedClients(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// shutdown closes done first so client pumps trying to register or
// unregister stop blocking once Run has stopped receiving.
func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
}
