package publish

import (
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/presence/go/internal/models"
)

func at(x, y float64, moving bool) Frame {
	return Frame{State: models.ActorState{X: x, Y: y}, Moving: moving}
}

func TestEveryTickNeverPublishesIdle(t *testing.T) {
	p := EveryTick{}
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		if p.Allow(now, at(100, 100, false)) {
			t.Fatalf("idle frame %d was allowed", i)
		}
	}
	if !p.Allow(now, at(104, 100, true)) {
		t.Fatal("moving frame was not allowed")
	}
}

func TestEveryTickPublishesArrival(t *testing.T) {
	p := EveryTick{}
	now := time.Unix(0, 0)
	arrival := Frame{State: models.ActorState{X: 200, Y: 100}, Moving: false, Moved: true}
	if !p.Allow(now, arrival) {
		t.Fatal("frame that landed on the target was not allowed")
	}
	if p.Allow(now, at(200, 100, false)) {
		t.Fatal("resting frame after arrival was allowed")
	}
}

func TestThrottleInterval(t *testing.T) {
	p := NewThrottle(ThrottleConfig{Interval: 50 * time.Millisecond, MinDistance: 2})
	start := time.Unix(0, 0)
	p.Seed(start, models.ActorState{X: 0, Y: 0})

	// 60Hz ticks moving 4 units each; only every third or so passes the 50ms bound
	allowed := 0
	for i := 1; i <= 60; i++ {
		now := start.Add(time.Duration(i) * time.Second / 60)
		if p.Allow(now, at(float64(4*i), 0, true)) {
			allowed++
		}
	}
	if allowed < 15 || allowed > 20 {
		t.Fatalf("allowed %d frames in one second, want about 20", allowed)
	}
}

func TestThrottleMinDistance(t *testing.T) {
	p := NewThrottle(ThrottleConfig{Interval: 0, MinDistance: 2})
	now := time.Unix(0, 0)
	p.Seed(now, models.ActorState{})

	if p.Allow(now, at(1, 0, true)) {
		t.Fatal("moved 1 unit, want suppressed")
	}
	if !p.Allow(now, at(2, 0, true)) {
		t.Fatal("moved 2 units, want published")
	}
	if p.Allow(now, at(3.5, 0, true)) {
		t.Fatal("moved 1.5 units since last publish, want suppressed")
	}
}

func TestThrottlePublishesRestingPosition(t *testing.T) {
	p := NewThrottle(ThrottleConfig{Interval: time.Hour, MinDistance: 2})
	now := time.Unix(0, 0)
	p.Seed(now, models.ActorState{})

	if p.Allow(now, at(4, 0, true)) {
		t.Fatal("within interval of seed, want suppressed")
	}
	if !p.Allow(now, at(10, 0, false)) {
		t.Fatal("arrival at new resting position must be published")
	}
	for i := 0; i < 5; i++ {
		if p.Allow(now, at(10, 0, false)) {
			t.Fatal("idle actor published again")
		}
	}
}

func TestThrottleShortHopWithoutMovingFrame(t *testing.T) {
	p := NewThrottle(DefaultThrottleConfig())
	now := time.Unix(0, 0)
	p.Seed(now, models.ActorState{X: 50, Y: 50})
	if !p.Allow(now, at(52, 50, false)) {
		t.Fatal("snap to a nearby target must be published")
	}
}

func TestThrottleUnseededIdleDoesNotPublish(t *testing.T) {
	p := NewThrottle(DefaultThrottleConfig())
	if p.Allow(time.Unix(0, 0), at(3, 3, false)) {
		t.Fatal("idle frame with no known published state was allowed")
	}
}

func TestNewPolicy(t *testing.T) {
	if _, ok := mustPolicy(t, PolicyEveryTick).(EveryTick); !ok {
		t.Fatal("every_tick did not build EveryTick")
	}
	if _, ok := mustPolicy(t, PolicyThrottle).(*Throttle); !ok {
		t.Fatal("throttle did not build *Throttle")
	}
	if _, ok := mustPolicy(t, "").(*Throttle); !ok {
		t.Fatal("empty name did not default to throttle")
	}
	if _, err := NewPolicy("sometimes", DefaultThrottleConfig()); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("err = %v, want ErrUnknownPolicy", err)
	}
}

func mustPolicy(t *testing.T, name string) Policy {
	t.Helper()
	p, err := NewPolicy(name, DefaultThrottleConfig())
	if err != nil {
		t.Fatalf("NewPolicy(%q): %v", name, err)
	}
	return p
}
