// Package gateway is the websocket front of the shared state for clients
// that do not talk to the backend directly. Every connection is bound to
// one server and one authenticated actor.
package gateway

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/sharedstate"
)

// Service is the presence gateway: WebSocket fan-out, state endpoints and
// health reporting
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	health            *GatewayHealthChecker
	exporter          *PrometheusExporter
	metrics           *Metrics
}

// NewService wires the gateway around channel. Backends that implement
// Pinger are checked by /health.
func NewService(config Config, channel sharedstate.Channel, auth Authenticator) *Service {
	metrics := &Metrics{}
	connectionManager := NewConnectionManager(channel, config.Connection, metrics)

	var pinger Pinger
	if p, ok := channel.(Pinger); ok {
		pinger = p
	}
	health := NewGatewayHealthChecker(connectionManager, pinger)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, auth),
		stateHandler:      NewStateHandler(connectionManager, config.Tuning, config.SnapshotTimeout),
		health:            health,
		exporter:          NewPrometheusExporter(health, metrics),
		metrics:           metrics,
	}
}

// Start runs until ctx is done, then closes every connection
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting presence gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("presence gateway service stopped")
}

func (s *Service) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/ws/presence", s.wsHandler.HandlePresenceConnection)
	router.HandlerFunc(http.MethodGet, "/ws/stats", s.wsHandler.HandleConnectionStats)
	s.stateHandler.RegisterStateRoutes(router)
	router.Handler(http.MethodGet, "/health", s.health)
	router.Handler(http.MethodGet, "/metrics", s.exporter)
	log.Info().Msg("presence gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
