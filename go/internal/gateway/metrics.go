package gateway

import "sync/atomic"

// Metrics counts gateway activity for the /metrics endpoint
type Metrics struct {
	ConnectionsOpened  atomic.Uint64
	ConnectionsClosed  atomic.Uint64
	SlowClosed         atomic.Uint64
	MessagesReceived   atomic.Uint64
	SnapshotsBroadcast atomic.Uint64
	BackendErrors      atomic.Uint64
}
