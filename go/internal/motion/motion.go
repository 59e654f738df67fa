// Package motion holds the local actor's motion model: a current position,
// a target set by input and a fixed per-tick speed.
package motion

import (
	"errors"

	"github.com/mcdev12/presence/go/internal/models"
)

// SnapThreshold is the distance under which an actor snaps onto its target
const SnapThreshold = 1.0

// ErrInvalidSpeed is returned when a local actor is created with speed <= 0
var ErrInvalidSpeed = errors.New("speed must be greater than zero")

// LocalActor is the actor driven by this client's input
type LocalActor struct {
	actor  models.Actor
	target models.Vec2
	speed  float64
	moving bool
	moved  bool
}

// New creates a local actor resting at the position carried by st
func New(id string, st models.ActorState, radius, speed float64) (*LocalActor, error) {
	if speed <= 0 {
		return nil, ErrInvalidSpeed
	}
	return &LocalActor{
		actor: models.Actor{
			ID:         id,
			ActorState: st,
			Radius:     radius,
		},
		target: st.Position(),
		speed:  speed,
	}, nil
}

// SetTarget records a new movement target. Coordinates are taken as given;
// a target outside the surface moves the actor off-surface.
func (a *LocalActor) SetTarget(x, y float64) {
	a.target = models.Vec2{X: x, Y: y}
}

// Tick advances the position toward the target by at most speed units. An
// actor that is within one step (or within SnapThreshold) of its target lands
// on it exactly and becomes idle in the same tick.
func (a *LocalActor) Tick() {
	pos := a.actor.Position()
	d := pos.Dist(a.target)
	if d <= SnapThreshold || d <= a.speed {
		a.actor.ActorState = a.actor.WithPosition(a.target)
		a.moving = false
		a.moved = d > 0
		return
	}

	dir := a.target.Sub(pos).Scale(1 / d)
	a.actor.ActorState = a.actor.WithPosition(pos.Add(dir.Scale(a.speed)))
	a.moving = true
	a.moved = true
}

func (a *LocalActor) ID() string { return a.actor.ID }

// Actor returns a copy of the actor as it should be rendered
func (a *LocalActor) Actor() models.Actor { return a.actor }

// State returns the publishable state of the actor
func (a *LocalActor) State() models.ActorState { return a.actor.ActorState }

func (a *LocalActor) Position() models.Vec2 { return a.actor.Position() }

func (a *LocalActor) Target() models.Vec2 { return a.target }

func (a *LocalActor) Speed() float64 { return a.speed }

// IsMoving reports whether the actor is still short of its target after the
// last tick
func (a *LocalActor) IsMoving() bool { return a.moving }

// Moved reports whether the last tick changed the position. It is true on
// the tick that lands on the target, when IsMoving is already false.
func (a *LocalActor) Moved() bool { return a.moved }
