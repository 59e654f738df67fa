package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler calls a frame function once per tick of the clock until its
// context ends. It stands in for the display refresh signal.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	frame    func()
	frames   atomic.Uint64
}

func NewScheduler(clock clockwork.Clock, interval time.Duration, frame func()) *Scheduler {
	return &Scheduler{clock: clock, interval: interval, frame: frame}
}

// Step runs a single frame
func (s *Scheduler) Step() {
	s.frame()
	s.frames.Add(1)
}

// Run draws a first frame immediately, then one per interval. The ticker is
// stopped before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.Step()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Step()
		}
	}
}

// Frames returns how many frames have run
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}
