package sharedstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory  = "memory"
	BackendNATS    = "nats"
	BackendRedis   = "redis"
	BackendGateway = "gateway"
)

var ErrUnknownBackend = errors.New("unknown shared state backend")

// BackendConfig selects and configures one Channel implementation
type BackendConfig struct {
	Kind        string
	NATS        NATSConfig
	RedisURL    string
	RedisPrefix string
	Gateway     GatewayConfig
}

func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Kind:        BackendMemory,
		NATS:        DefaultNATSConfig(),
		RedisURL:    "redis://localhost:6379/0",
		RedisPrefix: "presence",
		Gateway:     DefaultGatewayConfig(),
	}
}

// Open connects the configured backend. The returned close function
// releases the backend's connections.
func Open(ctx context.Context, cfg BackendConfig) (Channel, func() error, error) {
	switch cfg.Kind {
	case BackendMemory, "":
		return NewMemoryChannel(), func() error { return nil }, nil

	case BackendNATS:
		ch, err := NewNATSChannel(ctx, cfg.NATS)
		if err != nil {
			return nil, nil, err
		}
		return ch, ch.Close, nil

	case BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return NewRedisChannel(rdb, cfg.RedisPrefix), rdb.Close, nil

	case BackendGateway:
		ch := NewGatewayChannel(cfg.Gateway)
		return ch, ch.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
}
