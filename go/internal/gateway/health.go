package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mcdev12/presence/go/internal/apiutil"
)

// Pinger is implemented by backends that can report their connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Healthy          bool     `json:"healthy"`
	BackendConnected bool     `json:"backend_connected"`
	Connections      int      `json:"connections"`
	ActiveServers    int      `json:"active_servers"`
	Errors           []string `json:"errors"`
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// GatewayHealthChecker reports backend connectivity and connection counts
type GatewayHealthChecker struct {
	manager *ConnectionManager
	backend Pinger // nil for backends without a remote connection
}

func NewGatewayHealthChecker(manager *ConnectionManager, backend Pinger) *GatewayHealthChecker {
	return &GatewayHealthChecker{manager: manager, backend: backend}
}

func (h *GatewayHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:          true,
		BackendConnected: true,
		Errors:           []string{},
	}

	if h.backend != nil {
		if err := h.backend.Ping(ctx); err != nil {
			status.Healthy = false
			status.BackendConnected = false
			status.Errors = append(status.Errors, fmt.Sprintf("backend ping failed: %v", err))
		}
	}

	stats := h.manager.GetConnectionStats()
	status.Connections = stats.TotalConnections
	status.ActiveServers = stats.ActiveServers
	return status
}

func (h *GatewayHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	apiutil.WriteJSON(w, code, status)
}

// PrometheusExporter renders health and counters in the text exposition format
type PrometheusExporter struct {
	checker HealthChecker
	metrics *Metrics
}

func NewPrometheusExporter(checker HealthChecker, metrics *Metrics) *PrometheusExporter {
	return &PrometheusExporter{checker: checker, metrics: metrics}
}

func (e *PrometheusExporter) Export(ctx context.Context) string {
	status := e.checker.Check(ctx)

	var b strings.Builder
	gauge := func(name, help string, v int) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}

	gauge("presence_gateway_healthy", "Whether the gateway is healthy", boolToInt(status.Healthy))
	gauge("presence_gateway_backend_connected", "Whether the shared state backend is reachable", boolToInt(status.BackendConnected))
	gauge("presence_gateway_connections", "Open WebSocket connections", status.Connections)
	gauge("presence_gateway_active_servers", "Servers with at least one connection", status.ActiveServers)

	if e.metrics != nil {
		counter("presence_gateway_connections_opened_total", "WebSocket connections accepted", e.metrics.ConnectionsOpened.Load())
		counter("presence_gateway_connections_closed_total", "WebSocket connections closed", e.metrics.ConnectionsClosed.Load())
		counter("presence_gateway_slow_closed_total", "Connections closed for falling behind", e.metrics.SlowClosed.Load())
		counter("presence_gateway_messages_received_total", "Client frames received", e.metrics.MessagesReceived.Load())
		counter("presence_gateway_snapshots_broadcast_total", "Snapshots fanned out to a server", e.metrics.SnapshotsBroadcast.Load())
		counter("presence_gateway_backend_errors_total", "Failed backend operations", e.metrics.BackendErrors.Load())
	}
	return b.String()
}

func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(e.Export(r.Context())))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
