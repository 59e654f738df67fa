package gateway

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/events"
)

// Advertise registers the gateway on the local network so clients can find
// it with --discover. Call Shutdown on the result when stopping.
func Advertise(instance string, port int) (*zeroconf.Server, error) {
	server, err := zeroconf.Register(instance, events.ServiceType, "local.", port, []string{"path=/ws/presence"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	log.Info().
		Str("instance", instance).
		Str("service", events.ServiceType).
		Int("port", port).
		Msg("advertising gateway over mDNS")
	return server, nil
}
