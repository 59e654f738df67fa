package motion

import (
	"errors"
	"math"
	"testing"

	"github.com/mcdev12/presence/go/internal/models"
)

const eps = 1e-9

func newActor(t *testing.T, x, y, speed float64) *LocalActor {
	t.Helper()
	a, err := New("p1", models.ActorState{X: x, Y: y, DisplayName: "p1", Color: "#ff0000"}, 20, speed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewRejectsNonPositiveSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1} {
		if _, err := New("p1", models.ActorState{}, 20, speed); !errors.Is(err, ErrInvalidSpeed) {
			t.Fatalf("speed %v: err = %v, want ErrInvalidSpeed", speed, err)
		}
	}
}

func TestNewStartsIdleOnOwnPosition(t *testing.T) {
	a := newActor(t, 50, 60, 4)
	if a.IsMoving() {
		t.Fatalf("new actor should be idle")
	}
	if a.Target() != a.Position() {
		t.Fatalf("target = %+v, want %+v", a.Target(), a.Position())
	}
}

func TestTickSnapsWithinThreshold(t *testing.T) {
	cases := []struct {
		name   string
		dx, dy float64
	}{
		{"zero", 0, 0},
		{"half", 0.5, 0},
		{"diagonal", 0.6, 0.6},
		{"exact", 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newActor(t, 100, 100, 4)
			a.SetTarget(100+tc.dx, 100+tc.dy)
			a.Tick()
			if a.Position() != a.Target() {
				t.Fatalf("position = %+v, want exactly %+v", a.Position(), a.Target())
			}
			if a.IsMoving() {
				t.Fatalf("expected idle after snapping")
			}
		})
	}
}

func TestTickReducesDistanceBySpeed(t *testing.T) {
	cases := []struct {
		tx, ty float64
		speed  float64
	}{
		{200, 100, 4},
		{100, 0, 3},
		{300, 400, 7.5},
		{-50, -50, 1.25},
	}
	for _, tc := range cases {
		a := newActor(t, 100, 100, tc.speed)
		a.SetTarget(tc.tx, tc.ty)
		before := a.Position().Dist(a.Target())
		a.Tick()
		after := a.Position().Dist(a.Target())
		if math.Abs(after-(before-tc.speed)) > eps {
			t.Fatalf("target (%v,%v): distance %v -> %v, want %v", tc.tx, tc.ty, before, after, before-tc.speed)
		}
		if !a.IsMoving() {
			t.Fatalf("target (%v,%v): expected moving", tc.tx, tc.ty)
		}
	}
}

func TestTickReachesTargetAfterEnoughTicks(t *testing.T) {
	a := newActor(t, 100, 100, 4)
	a.SetTarget(200, 100)
	for i := 0; i < 25; i++ {
		a.Tick()
	}
	if math.Abs(a.Position().X-200) > eps || math.Abs(a.Position().Y-100) > eps {
		t.Fatalf("position after 25 ticks = %+v, want (200,100)", a.Position())
	}
	if a.IsMoving() {
		t.Fatalf("expected idle after arrival")
	}
}

func TestTickMovingUntilLastStep(t *testing.T) {
	a := newActor(t, 0, 0, 4)
	a.SetTarget(10, 0)
	a.Tick()
	a.Tick()
	if !a.IsMoving() || a.Position().X != 8 {
		t.Fatalf("after 2 ticks: x=%v moving=%v, want 8 and moving", a.Position().X, a.IsMoving())
	}
	a.Tick()
	if a.IsMoving() || a.Position().X != 10 {
		t.Fatalf("after 3 ticks: x=%v moving=%v, want 10 and idle", a.Position().X, a.IsMoving())
	}
}

func TestMovedReportsArrivingTick(t *testing.T) {
	a := newActor(t, 0, 0, 4)
	a.SetTarget(6, 0)
	a.Tick()
	if !a.Moved() || !a.IsMoving() {
		t.Fatalf("first tick: moved=%v moving=%v, want both", a.Moved(), a.IsMoving())
	}
	a.Tick()
	if !a.Moved() || a.IsMoving() {
		t.Fatalf("arriving tick: moved=%v moving=%v, want moved and idle", a.Moved(), a.IsMoving())
	}
	a.Tick()
	if a.Moved() {
		t.Fatal("tick at rest reported a move")
	}
}

func TestSetTargetAcceptsOffSurfaceCoordinates(t *testing.T) {
	a := newActor(t, 10, 10, 100)
	a.SetTarget(-500, 10)
	for i := 0; i < 10; i++ {
		a.Tick()
	}
	if a.Position().X != -500 {
		t.Fatalf("x = %v, want -500", a.Position().X)
	}
}

func TestTickKeepsIdentity(t *testing.T) {
	a := newActor(t, 0, 0, 4)
	a.SetTarget(10, 0)
	a.Tick()
	st := a.State()
	if st.DisplayName != "p1" || st.Color != "#ff0000" {
		t.Fatalf("state lost identity fields: %+v", st)
	}
	if a.Actor().Radius != 20 {
		t.Fatalf("radius = %v, want 20", a.Actor().Radius)
	}
}
