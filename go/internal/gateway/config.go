package gateway

import (
	"net/http"
	"time"

	"github.com/mcdev12/presence/go/internal/tuning"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	BackendTimeout  time.Duration // Bound on each Join/Publish/Leave sent to the backend
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		BackendTimeout:  5 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Config holds configuration for the presence gateway service
type Config struct {
	Connection ConnectionConfig
	// Tuning sizes the spectator frames served over HTTP
	Tuning tuning.Config
	// SnapshotTimeout bounds how long a state request waits for the backend
	SnapshotTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Connection:      DefaultConnectionConfig(),
		Tuning:          tuning.DefaultConfig(),
		SnapshotTimeout: 3 * time.Second,
	}
}
