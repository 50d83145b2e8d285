package backend

import (
	"context"

	"github.com/sourcegraph/conc"
)

// Source produces inbound events, e.g. the daemon client.
type Source interface {
	Events() <-chan Event
}

// Watcher forwards a source's events on a single ordered channel until the
// source closes or Stop is called.
type Watcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	wg     conc.WaitGroup
}

// NewWatcher starts forwarding events from src.
func NewWatcher(src Source) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 16),
	}

	in := src.Events()
	w.wg.Go(func() { w.forward(in) })

	go func() {
		w.wg.Wait()
		close(w.events)
	}()

	return w
}

// Events returns a channel of backend events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop cancels the watcher. Use Wait if a clean drain is required.
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until the forwarder has exited and the events channel is
// closed.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) forward(in <-chan Event) {
	for {
		select {
		case <-w.ctx.Done():
			return
		case evt, ok := <-in:
			if !ok {
				return
			}
			select {
			case <-w.ctx.Done():
				return
			case w.events <- evt:
			}
		}
	}
}
