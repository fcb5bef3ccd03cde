// Package ws streams registry telemetry to websocket subscribers.
package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evgrid/backend/services/load-balancer/internal/registry"
)

// Source returns the current registry view sent to new subscribers.
type Source func() []registry.Entry

// Server upgrades HTTP connections to telemetry subscriptions.
type Server struct {
	hub          *Hub
	source       Source
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, source Source, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub:          hub,
		source:       source,
		logger:       logger.Named("stream"),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for /substations/stream.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	connection := NewConnection(id, conn, s.writeTimeout, s.pingInterval, s.logger, func(id string) {
		s.hub.Remove(id)
		s.logger.Info("subscriber disconnected", zap.String("subscriber", id))
	})
	s.hub.Add(connection)

	if s.source != nil {
		if payload, err := s.hub.Encode(s.source()); err == nil {
			connection.Send(payload)
		}
	}

	go connection.Start()
	s.logger.Info("subscriber connected", zap.String("subscriber", id), zap.String("remote", r.RemoteAddr))
}
