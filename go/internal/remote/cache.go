// Package remote keeps the last-known published state of every other actor
// in the current server.
package remote

import (
	"sync"

	"github.com/mcdev12/presence/go/internal/models"
)

// Cache maps remote actor ids to their last published state. Every update
// replaces the whole mapping; nothing is merged.
type Cache struct {
	localID string

	mu     sync.RWMutex
	actors map[string]models.ActorState
}

// NewCache creates an empty cache that will never hold localID
func NewCache(localID string) *Cache {
	return &Cache{
		localID: localID,
		actors:  map[string]models.ActorState{},
	}
}

// ReplaceAll discards the current mapping and rebuilds it from snapshot,
// skipping the local actor. A nil snapshot leaves the cache empty. Actors
// missing from snapshot are gone after the call.
func (c *Cache) ReplaceAll(snapshot models.Snapshot) {
	next := make(map[string]models.ActorState, len(snapshot))
	for id, st := range snapshot {
		if id == c.localID {
			continue
		}
		next[id] = st
	}

	c.mu.Lock()
	c.actors = next
	c.mu.Unlock()
}

// All returns the current mapping. The returned map is never written again
// by the cache and must be treated as read-only by the caller.
func (c *Cache) All() map[string]models.ActorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actors
}

// Len returns the number of remote actors currently known
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.actors)
}

// LocalID returns the id the cache filters out
func (c *Cache) LocalID() string { return c.localID }
