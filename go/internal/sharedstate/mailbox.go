package sharedstate

import (
	"sync"

	"github.com/mcdev12/presence/go/internal/models"
)

// delivery runs a subscriber callback on its own goroutine. Snapshots queued
// faster than the callback consumes them are replaced by the newest one.
type delivery struct {
	fn   func(models.Snapshot)
	ch   chan models.Snapshot
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newDelivery(fn func(models.Snapshot)) *delivery {
	d := &delivery{
		fn:   fn,
		ch:   make(chan models.Snapshot, 1),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *delivery) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case s := <-d.ch:
			d.fn(s)
		}
	}
}

func (d *delivery) push(s models.Snapshot) {
	for {
		select {
		case <-d.done:
			return
		case d.ch <- s:
			return
		default:
		}
		select {
		case <-d.ch:
		default:
		}
	}
}

// stop ends delivery and waits for an in-flight callback to return
func (d *delivery) stop() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
