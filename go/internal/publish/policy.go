// Package publish decides when the local actor's state is written to the
// shared channel and performs the write off the tick loop.
package publish

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/presence/go/internal/models"
)

const (
	PolicyEveryTick = "every_tick"
	PolicyThrottle  = "throttle"
)

// ErrUnknownPolicy is returned by NewPolicy for an unrecognised name
var ErrUnknownPolicy = errors.New("unknown publish policy")

// Frame is what the tick loop offers to the gate after each motion step
type Frame struct {
	State models.ActorState
	// Moving is true while the actor is short of its target
	Moving bool
	// Moved is true when the tick changed the position, including the
	// tick that lands on the target
	Moved bool
}

// Policy decides whether a frame is written to the shared channel. Policies
// are called from a single goroutine and may keep state between calls.
type Policy interface {
	Allow(now time.Time, f Frame) bool
}

// Seeder is implemented by policies that need to know the state already
// written by Join before the first frame is offered
type Seeder interface {
	Seed(now time.Time, st models.ActorState)
}

// Ordered is implemented by policies whose allowed frames must each be
// written, in order, instead of collapsing to the latest one
type Ordered interface {
	Ordered() bool
}

// EveryTick publishes after every tick that changed the position, the
// arriving tick included, and never while the actor is idle
type EveryTick struct{}

func (EveryTick) Allow(_ time.Time, f Frame) bool { return f.Moving || f.Moved }

func (EveryTick) Ordered() bool { return true }

// ThrottleConfig bounds the write rate of a moving actor
type ThrottleConfig struct {
	Interval    time.Duration
	MinDistance float64
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		Interval:    50 * time.Millisecond,
		MinDistance: 2,
	}
}

// Throttle publishes a moving actor at most once per Interval, and only once
// it has moved MinDistance from the last published position. When the actor
// comes to rest anywhere other than the last published position, that
// resting position is published once.
type Throttle struct {
	cfg ThrottleConfig

	hasLast bool
	lastAt  time.Time
	last    models.Vec2
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	return &Throttle{cfg: cfg}
}

func (t *Throttle) Seed(now time.Time, st models.ActorState) {
	t.record(now, st.Position())
}

func (t *Throttle) Allow(now time.Time, f Frame) bool {
	pos := f.State.Position()
	if !f.Moving {
		if !t.hasLast || pos == t.last {
			return false
		}
		t.record(now, pos)
		return true
	}

	if t.hasLast {
		if now.Sub(t.lastAt) < t.cfg.Interval {
			return false
		}
		if pos.Dist(t.last) < t.cfg.MinDistance {
			return false
		}
	}
	t.record(now, pos)
	return true
}

func (t *Throttle) record(now time.Time, pos models.Vec2) {
	t.hasLast = true
	t.lastAt = now
	t.last = pos
}

// NewPolicy builds a policy by configuration name
func NewPolicy(name string, cfg ThrottleConfig) (Policy, error) {
	switch name {
	case PolicyEveryTick:
		return EveryTick{}, nil
	case PolicyThrottle, "":
		return NewThrottle(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
