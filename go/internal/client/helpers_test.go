package client

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/sharedstate"
)

type recordingSurface struct {
	mu      sync.Mutex
	circles []models.Vec2
	shown   int
}

func (s *recordingSurface) Size() (float64, float64) { return 800, 600 }

func (s *recordingSurface) Clear() {
	s.mu.Lock()
	s.circles = nil
	s.mu.Unlock()
}

func (s *recordingSurface) FillCircle(center models.Vec2, _ float64, _ color.RGBA) {
	s.mu.Lock()
	s.circles = append(s.circles, center)
	s.mu.Unlock()
}

func (s *recordingSurface) DrawLabel(models.Vec2, string, color.RGBA) {}

func (s *recordingSurface) Show() {
	s.mu.Lock()
	s.shown++
	s.mu.Unlock()
}

func (s *recordingSurface) lastFrame() []models.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Vec2(nil), s.circles...)
}

// flakyChannel wraps a memory channel and fails selected operations
type flakyChannel struct {
	*sharedstate.MemoryChannel
	joinErr    error
	publishErr error
}

func (c *flakyChannel) Join(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	if c.joinErr != nil {
		return c.joinErr
	}
	return c.MemoryChannel.Join(ctx, serverID, actorID, st)
}

func (c *flakyChannel) Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	return c.MemoryChannel.Publish(ctx, serverID, actorID, st)
}

var errBackendDown = errors.New("backend down")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
