package sharedstate

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/presence/go/internal/models"
)

// MemoryChannel keeps every server scope in process. It backs tests and the
// gateway when no external backend is configured.
type MemoryChannel struct {
	mu      sync.Mutex
	servers map[string]models.Snapshot
	subs    map[string]map[uuid.UUID]*delivery
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		servers: map[string]models.Snapshot{},
		subs:    map[string]map[uuid.UUID]*delivery{},
	}
}

func (m *MemoryChannel) Join(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	return m.Publish(ctx, serverID, actorID, st)
}

func (m *MemoryChannel) Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	scope, ok := m.servers[serverID]
	if !ok {
		scope = models.Snapshot{}
		m.servers[serverID] = scope
	}
	scope[actorID] = st
	m.notifyLocked(serverID)
	return nil
}

func (m *MemoryChannel) Leave(ctx context.Context, serverID, actorID string) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	scope, ok := m.servers[serverID]
	if !ok {
		return nil
	}
	if _, ok := scope[actorID]; !ok {
		return nil
	}
	delete(scope, actorID)
	m.notifyLocked(serverID)
	return nil
}

func (m *MemoryChannel) Subscribe(ctx context.Context, serverID string, fn func(models.Snapshot)) (Subscription, error) {
	if err := ValidateID("server", serverID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New()
	d := newDelivery(fn)

	m.mu.Lock()
	if m.subs[serverID] == nil {
		m.subs[serverID] = map[uuid.UUID]*delivery{}
	}
	m.subs[serverID][id] = d
	d.push(m.servers[serverID].Clone())
	m.mu.Unlock()

	return &memorySubscription{channel: m, serverID: serverID, id: id, d: d}, nil
}

// Snapshot returns a copy of the current contents of serverID
func (m *MemoryChannel) Snapshot(serverID string) models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.servers[serverID].Clone()
}

func (m *MemoryChannel) notifyLocked(serverID string) {
	for _, d := range m.subs[serverID] {
		d.push(m.servers[serverID].Clone())
	}
}

type memorySubscription struct {
	channel  *MemoryChannel
	serverID string
	id       uuid.UUID
	d        *delivery
}

func (s *memorySubscription) Unsubscribe() error {
	s.channel.mu.Lock()
	delete(s.channel.subs[s.serverID], s.id)
	if len(s.channel.subs[s.serverID]) == 0 {
		delete(s.channel.subs, s.serverID)
	}
	s.channel.mu.Unlock()
	s.d.stop()
	return nil
}
