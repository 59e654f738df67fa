package publish

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/models"
)

// Publisher writes the local actor's state to the shared channel
type Publisher interface {
	Publish(ctx context.Context, st models.ActorState) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, st models.ActorState) error

func (f PublisherFunc) Publish(ctx context.Context, st models.ActorState) error { return f(ctx, st) }

// Stats are cumulative gate counters
type Stats struct {
	Offered   uint64
	Allowed   uint64
	Coalesced uint64
	Published uint64
	Failed    uint64
}

// Gate sits between the tick loop and the shared channel. Offer never blocks
// and Run performs the writes. Allowed states wait in a pending queue: under
// an Ordered policy every state is written in order, otherwise a newer state
// replaces any unsent older one.
type Gate struct {
	policy    Policy
	publisher Publisher
	clock     clockwork.Clock
	ordered   bool

	mu      sync.Mutex
	pending []models.ActorState
	wake    chan struct{}

	offered   atomic.Uint64
	allowed   atomic.Uint64
	coalesced atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

func NewGate(policy Policy, publisher Publisher, clock clockwork.Clock) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var ordered bool
	if o, ok := policy.(Ordered); ok {
		ordered = o.Ordered()
	}
	return &Gate{
		policy:    policy,
		publisher: publisher,
		clock:     clock,
		ordered:   ordered,
		wake:      make(chan struct{}, 1),
	}
}

// Prime tells a seeding policy which state Join already wrote
func (g *Gate) Prime(st models.ActorState) {
	if s, ok := g.policy.(Seeder); ok {
		s.Seed(g.clock.Now(), st)
	}
}

// Offer applies the policy to f and queues its state when allowed. It must be
// called from one goroutine.
func (g *Gate) Offer(f Frame) bool {
	g.offered.Add(1)
	if !g.policy.Allow(g.clock.Now(), f) {
		return false
	}
	g.allowed.Add(1)
	g.post(f.State)
	return true
}

func (g *Gate) post(st models.ActorState) {
	g.mu.Lock()
	if !g.ordered && len(g.pending) > 0 {
		g.coalesced.Add(uint64(len(g.pending)))
		g.pending = g.pending[:0]
	}
	g.pending = append(g.pending, st)
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *Gate) next() (models.ActorState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		return models.ActorState{}, false
	}
	st := g.pending[0]
	g.pending = g.pending[1:]
	if len(g.pending) == 0 {
		g.pending = nil
	}
	return st, true
}

// Pending returns the number of allowed states not yet handed to the publisher
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Run publishes queued states until ctx is done. Failures are logged and
// counted; nothing is retried since a newer state will follow.
func (g *Gate) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.wake:
		}
		for {
			st, ok := g.next()
			if !ok {
				break
			}
			if err := g.publisher.Publish(ctx, st); err != nil {
				if ctx.Err() != nil {
					return
				}
				g.failed.Add(1)
				log.Error().Err(err).
					Float64("x", st.X).
					Float64("y", st.Y).
					Msg("failed to publish actor state")
				continue
			}
			g.published.Add(1)
		}
	}
}

func (g *Gate) Stats() Stats {
	return Stats{
		Offered:   g.offered.Load(),
		Allowed:   g.allowed.Load(),
		Coalesced: g.coalesced.Load(),
		Published: g.published.Load(),
		Failed:    g.failed.Load(),
	}
}
