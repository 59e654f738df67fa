package client

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestSchedulerStep(t *testing.T) {
	var calls int
	s := NewScheduler(clockwork.NewFakeClock(), time.Second, func() { calls++ })
	s.Step()
	s.Step()
	if calls != 2 || s.Frames() != 2 {
		t.Fatalf("calls=%d frames=%d, want 2", calls, s.Frames())
	}
}

func TestSchedulerRunsOneFramePerTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	s := NewScheduler(clock, time.Second/60, func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first frame", func() bool { return calls.Load() == 1 })

	for i := 2; i <= 10; i++ {
		clock.Advance(time.Second / 60)
		want := int64(i)
		waitFor(t, "next frame", func() bool { return calls.Load() == want })
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s.Frames() != 10 {
		t.Fatalf("frames = %d, want 10", s.Frames())
	}
}
