package client

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/events"
)

// Gateway is a gateway found on the local network
type Gateway struct {
	Instance string
	URL      string
}

// Discover browses mDNS for gateways until timeout elapses or ctx ends
func Discover(ctx context.Context, timeout time.Duration) ([]Gateway, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, events.ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("failed to browse for gateways: %w", err)
	}

	var gateways []Gateway
	seen := map[string]bool{}
	for {
		select {
		case <-ctx.Done():
			return gateways, nil
		case entry, ok := <-entries:
			if !ok {
				return gateways, nil
			}
			if entry == nil || len(entry.AddrIPv4) == 0 || seen[entry.Instance] {
				continue
			}
			seen[entry.Instance] = true
			g := Gateway{
				Instance: entry.Instance,
				URL:      fmt.Sprintf("ws://%s:%d", entry.AddrIPv4[0], entry.Port),
			}
			log.Debug().Str("instance", g.Instance).Str("url", g.URL).Msg("discovered gateway")
			gateways = append(gateways, g)
		}
	}
}
