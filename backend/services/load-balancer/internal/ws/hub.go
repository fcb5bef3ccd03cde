package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"evgrid/backend/services/load-balancer/internal/registry"
)

// Message is pushed to every subscriber after a poll cycle.
type Message struct {
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	Substations []registry.View `json:"substations"`
}

// Hub tracks telemetry stream subscribers.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
	now         func() time.Time
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger.Named("stream"),
		now:         time.Now,
	}
}

// Add registers a connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

// Remove drops a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Encode renders entries as a stream message.
func (h *Hub) Encode(entries []registry.Entry) ([]byte, error) {
	return json.Marshal(Message{
		Type:        "telemetry",
		Timestamp:   h.now().UTC(),
		Substations: registry.Views(entries),
	})
}

// Publish sends the registry view to every subscriber. Slow subscribers drop messages.
func (h *Hub) Publish(entries []registry.Entry) {
	if h.Count() == 0 {
		return
	}
	payload, err := h.Encode(entries)
	if err != nil {
		h.logger.Error("failed to encode telemetry", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		conn.Send(payload)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
}
