// Package client runs one user's presence session: local motion driven by
// input, remote actors from the shared channel and a frame loop drawing both.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/motion"
	"github.com/mcdev12/presence/go/internal/publish"
	"github.com/mcdev12/presence/go/internal/remote"
	"github.com/mcdev12/presence/go/internal/render"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/tuning"
)

// LeaveTimeout bounds the Leave issued when a session ends
const LeaveTimeout = 5 * time.Second

const inputBuffer = 16

var ErrSessionUsed = errors.New("session has already been run")

// State is the lifecycle state of a session
type State int32

const (
	StateDisconnected State = iota
	StateIdle
	StateMoving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	default:
		return "disconnected"
	}
}

// Identity is who the session plays as and where
type Identity struct {
	ActorID     string
	DisplayName string
	Color       string
	ServerID    string
	// Spawn is the starting position; a random position on the surface when nil
	Spawn *models.Vec2
}

// Status is a copy of the session as of the last frame
type Status struct {
	State    State
	Position models.Vec2
	Target   models.Vec2
	Remote   int
	Frames   uint64
	Publish  publish.Stats
}

// Session wires the motion model, the remote cache, the publish gate and the
// frame loop to one shared channel and one surface
type Session struct {
	identity Identity
	cfg      tuning.Config
	channel  sharedstate.Channel
	surface  render.Surface
	clock    clockwork.Clock

	actor     *motion.LocalActor
	cache     *remote.Cache
	gate      *publish.Gate
	scheduler *Scheduler

	input chan models.Vec2
	used  atomic.Bool
	state atomic.Int32

	mu     sync.Mutex
	status Status
}

func NewSession(id Identity, cfg tuning.Config, channel sharedstate.Channel, surface render.Surface, clock clockwork.Clock) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sharedstate.ValidateID("server", id.ServerID); err != nil {
		return nil, err
	}
	if err := sharedstate.ValidateID("actor", id.ActorID); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if id.Color == "" {
		id.Color = cfg.ColorFor(id.ActorID)
	}

	spawn := randomSpawn(cfg)
	if id.Spawn != nil {
		spawn = *id.Spawn
	}
	st := models.ActorState{X: spawn.X, Y: spawn.Y, DisplayName: id.DisplayName, Color: id.Color}
	actor, err := motion.New(id.ActorID, st, cfg.Radius, cfg.Speed)
	if err != nil {
		return nil, err
	}

	policy, err := publish.NewPolicy(cfg.PublishPolicy, cfg.ThrottleConfig())
	if err != nil {
		return nil, err
	}

	s := &Session{
		identity: id,
		cfg:      cfg,
		channel:  channel,
		surface:  surface,
		clock:    clock,
		actor:    actor,
		cache:    remote.NewCache(id.ActorID),
		input:    make(chan models.Vec2, inputBuffer),
	}
	s.gate = publish.NewGate(policy, publish.PublisherFunc(s.publish), clock)
	s.scheduler = NewScheduler(clock, cfg.FrameInterval(), s.frame)
	s.status = Status{Position: spawn, Target: spawn}
	return s, nil
}

func randomSpawn(cfg tuning.Config) models.Vec2 {
	minX, minY, maxX, maxY := cfg.SpawnRange()
	return models.Vec2{
		X: minX + rand.Float64()*(maxX-minX),
		Y: minY + rand.Float64()*(maxY-minY),
	}
}

func (s *Session) publish(ctx context.Context, st models.ActorState) error {
	return s.channel.Publish(ctx, s.identity.ServerID, s.identity.ActorID, st)
}

// Run joins the server, subscribes to it and runs the frame loop until ctx
// ends, then releases everything and removes the actor from the server.
// A session runs at most once.
func (s *Session) Run(ctx context.Context) error {
	if !s.used.CompareAndSwap(false, true) {
		return ErrSessionUsed
	}
	serverID, actorID := s.identity.ServerID, s.identity.ActorID
	logger := log.With().Str("server_id", serverID).Str("actor_id", actorID).Logger()

	initial := s.actor.State()
	if err := s.channel.Join(ctx, serverID, actorID, initial); err != nil {
		return fmt.Errorf("failed to join server %s: %w", serverID, err)
	}
	s.gate.Prime(initial)

	sub, err := s.channel.Subscribe(ctx, serverID, s.cache.ReplaceAll)
	if err != nil {
		_ = s.leave(logger)
		return fmt.Errorf("failed to subscribe to server %s: %w", serverID, err)
	}

	s.setState(StateIdle)
	logger.Info().
		Float64("x", initial.X).
		Float64("y", initial.Y).
		Msg("joined server")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.gate.Run(ctx)
	}()

	s.scheduler.Run(ctx)

	if err := sub.Unsubscribe(); err != nil {
		logger.Warn().Err(err).Msg("failed to unsubscribe")
	}
	wg.Wait()

	err = s.leave(logger)
	stats := s.gate.Stats()
	logger.Info().
		Uint64("frames", s.scheduler.Frames()).
		Uint64("published", stats.Published).
		Uint64("publish_failures", stats.Failed).
		Msg("left server")
	return err
}

func (s *Session) leave(logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), LeaveTimeout)
	defer cancel()
	s.setState(StateDisconnected)
	if err := s.channel.Leave(ctx, s.identity.ServerID, s.identity.ActorID); err != nil {
		logger.Error().Err(err).Msg("failed to leave server")
		return fmt.Errorf("failed to leave server %s: %w", s.identity.ServerID, err)
	}
	return nil
}

// SetTarget asks the local actor to move towards (x, y). It is safe to call
// from any goroutine; the target is applied at the start of the next frame
// and when several arrive between frames the last one wins.
func (s *Session) SetTarget(x, y float64) {
	p := models.Vec2{X: x, Y: y}
	for {
		select {
		case s.input <- p:
			return
		default:
		}
		select {
		case <-s.input:
		default:
		}
	}
}

func (s *Session) drainInput() {
	for {
		select {
		case p := <-s.input:
			s.actor.SetTarget(p.X, p.Y)
		default:
			return
		}
	}
}

func (s *Session) frame() {
	s.drainInput()
	s.actor.Tick()

	moving := s.actor.IsMoving()
	s.gate.Offer(publish.Frame{State: s.actor.State(), Moving: moving, Moved: s.actor.Moved()})
	if s.State() != StateDisconnected {
		if moving {
			s.setState(StateMoving)
		} else {
			s.setState(StateIdle)
		}
	}

	local := s.actor.Actor()
	remoteActors := s.cache.All()
	render.Render(s.surface, &local, remoteActors, s.cfg.Radius)
	if p, ok := s.surface.(render.Presenter); ok {
		p.Show()
	}

	s.mu.Lock()
	s.status = Status{
		State:    s.State(),
		Position: local.Position(),
		Target:   s.actor.Target(),
		Remote:   len(remoteActors),
		Frames:   s.scheduler.Frames() + 1,
		Publish:  s.gate.Stats(),
	}
	s.mu.Unlock()
}

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// State returns the current lifecycle state
func (s *Session) State() State { return State(s.state.Load()) }

// Status returns a copy of the session as of the last frame
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.State = s.State()
	return st
}

func (s *Session) Identity() Identity { return s.identity }

func (s *Session) Config() tuning.Config { return s.cfg }
