// Package tracker relays the backend daemon's context status to subscribers.
//
// A single Tracker is created at start-up and handed to every component that
// needs the backend status. Each subscriber owns a FIFO mailbox so that a slow
// consumer never blocks the publisher and never loses a transition.
package tracker

import "sync"

// Transition is one observed change of backend status.
type Transition struct {
	Seq  uint64
	From Status
	To   Status
}

// Tracker holds the current backend status and fans transitions out.
type Tracker struct {
	mu      sync.Mutex
	current Status
	seq     uint64
	subs    map[*Subscription]struct{}
}

// New returns a tracker in the Uninitialized state.
func New() *Tracker {
	return &Tracker{
		current: Uninitialized,
		subs:    make(map[*Subscription]struct{}),
	}
}

// Current returns the last published status.
func (t *Tracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Publish records status and delivers the transition to every subscriber
// registered at this moment. Repeated statuses are delivered as well.
func (t *Tracker) Publish(status Status) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	tr := Transition{Seq: t.seq, From: t.current, To: status}
	t.current = status
	for sub := range t.subs {
		sub.push(tr)
	}
	return tr
}

// Subscribe registers a new subscriber. It only sees transitions published
// after this call returns.
func (t *Tracker) Subscribe() *Subscription {
	sub := newSubscription(t)
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	go sub.pump()
	return sub
}

func (t *Tracker) unsubscribe(sub *Subscription) {
	t.mu.Lock()
	delete(t.subs, sub)
	t.mu.Unlock()
}

// Subscription delivers transitions in publish order on C.
type Subscription struct {
	tracker *Tracker

	mu     sync.Mutex
	queue  []Transition
	closed bool
	wake   chan struct{}
	done   chan struct{}
	out    chan Transition
	once   sync.Once
}

func newSubscription(t *Tracker) *Subscription {
	return &Subscription{
		tracker: t,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     make(chan Transition),
	}
}

// C returns the delivery channel. It is closed after Close.
func (s *Subscription) C() <-chan Transition {
	return s.out
}

// Close detaches the subscription. Undelivered transitions are discarded.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.tracker.unsubscribe(s)
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Subscription) push(tr Transition) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, tr)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Transition{}, false
	}
	tr := s.queue[0]
	s.queue[0] = Transition{}
	s.queue = s.queue[1:]
	return tr, true
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		tr, ok := s.pop()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- tr:
		case <-s.done:
			return
		}
	}
}
