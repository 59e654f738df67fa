package models

import "math"

// Vec2 is a point or displacement on the shared surface
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the straight-line distance between v and o
func (v Vec2) Dist(o Vec2) float64 { return o.Sub(v).Len() }

// ActorState is the published fact about one actor. It is what gets written
// to the shared channel and what every snapshot carries per actor id.
type ActorState struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DisplayName string  `json:"displayName"`
	Color       string  `json:"color"`
}

// Position returns the actor position as a vector
func (s ActorState) Position() Vec2 {
	return Vec2{X: s.X, Y: s.Y}
}

// WithPosition returns a copy of s moved to p
func (s ActorState) WithPosition(p Vec2) ActorState {
	s.X, s.Y = p.X, p.Y
	return s
}

// Actor represents a participant rendered on the shared surface
type Actor struct {
	ID string `json:"id"`
	ActorState
	Radius float64 `json:"radius"`
}

// Snapshot is a complete point-in-time copy of all actors published under one
// server scope, keyed by actor id.
type Snapshot map[string]ActorState

// Clone returns a copy that shares no map storage with s
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, st := range s {
		out[id] = st
	}
	return out
}
