// Package approval correlates daemon approval requests with user decisions.
//
// Requests are matched purely by id. Several requests may be pending at once
// (one swap choosing a maker while another waits for execution confirmation)
// and each is resolved independently. A decision is sent to the daemon at
// most once per id; duplicate clicks and re-renders resolve to no-ops.
package approval

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/atomicstack/swap-control/internal/logging/events"
)

// Sender delivers a decision to the daemon. Implementations own retries.
type Sender interface {
	ResolveApproval(ctx context.Context, requestID string, decision Decision) error
}

type outcome int

const (
	outcomeResolved outcome = iota + 1
	outcomeWithdrawn
)

// maxTombstones bounds how many closed ids are remembered. The oldest are
// evicted first.
const maxTombstones = 4096

// Correlator owns the set of pending approval requests.
type Correlator struct {
	sender Sender
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]Request
	order   []string
	// closed remembers ids that were resolved or explicitly withdrawn, so
	// a late re-send of the same request is not resurrected.
	closed *lru.Cache[string, outcome]
}

// NewCorrelator returns an empty correlator sending decisions through sender.
func NewCorrelator(sender Sender) *Correlator {
	return newCorrelator(sender, maxTombstones)
}

func newCorrelator(sender Sender, tombstones int) *Correlator {
	closed, err := lru.New[string, outcome](tombstones)
	if err != nil {
		panic(err)
	}
	return &Correlator{
		sender:  sender,
		now:     time.Now,
		pending: make(map[string]Request),
		closed:  closed,
	}
}

// OnRequestReceived registers req as pending. A request with a pending id
// supersedes the stored payload; a request whose id was already resolved or
// withdrawn is ignored.
func (c *Correlator) OnRequestReceived(req Request) {
	if req.ID == "" {
		return
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = c.now()
	}
	req = req.clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Contains(req.ID) {
		events.Approval.Ignored(req.ID, string(req.Kind))
		return
	}
	if _, exists := c.pending[req.ID]; exists {
		c.pending[req.ID] = req
		events.Approval.Superseded(req.ID, string(req.Kind))
		return
	}
	c.pending[req.ID] = req
	c.order = append(c.order, req.ID)
	events.Approval.Received(req.ID, string(req.Kind))
}

// Resolve answers a pending request and sends the decision to the daemon.
// It reports whether a send was attempted. Unknown or already closed ids are
// a silent no-op. A failed send is returned, but the request stays resolved.
func (c *Correlator) Resolve(ctx context.Context, requestID string, decision Decision) (bool, error) {
	c.mu.Lock()
	if _, ok := c.pending[requestID]; !ok {
		c.mu.Unlock()
		return false, nil
	}
	c.removeLocked(requestID, outcomeResolved)
	c.mu.Unlock()

	events.Approval.Resolved(requestID, decision.String())
	if c.sender == nil {
		return true, nil
	}
	if err := c.sender.ResolveApproval(ctx, requestID, decision); err != nil {
		events.Approval.SendFailed(requestID, err)
		return true, fmt.Errorf("send decision for %s: %w", requestID, err)
	}
	return true, nil
}

// Withdraw drops a pending request the daemon stopped waiting on. Any later
// Resolve for the id is a no-op.
func (c *Correlator) Withdraw(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[requestID]; !ok {
		if requestID != "" && !c.closed.Contains(requestID) {
			c.closed.Add(requestID, outcomeWithdrawn)
		}
		return false
	}
	c.removeLocked(requestID, outcomeWithdrawn)
	events.Approval.Withdrawn(requestID)
	return true
}

// WithdrawAll drops every pending request and returns how many were dropped.
// No tombstones are recorded: a daemon that still waits on a request
// re-sends it once it is available again, and that re-send is accepted.
func (c *Correlator) WithdrawAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.order
	c.order = nil
	for _, id := range ids {
		delete(c.pending, id)
		events.Approval.Withdrawn(id)
	}
	return len(ids)
}

// Tombstones returns how many closed ids are remembered.
func (c *Correlator) Tombstones() int {
	return c.closed.Len()
}

// Pending yields the pending requests in arrival order. The sequence
// iterates a snapshot taken when Pending is called and may be ranged over
// any number of times.
func (c *Correlator) Pending() iter.Seq[Request] {
	snapshot := c.snapshot()
	return func(yield func(Request) bool) {
		for _, req := range snapshot {
			if !yield(req.clone()) {
				return
			}
		}
	}
}

// Get returns the pending request with the given id.
func (c *Correlator) Get(requestID string) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[requestID]
	if !ok {
		return Request{}, false
	}
	return req.clone(), true
}

// Len returns the number of pending requests.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) snapshot() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.pending[id])
	}
	return out
}

func (c *Correlator) removeLocked(requestID string, why outcome) {
	delete(c.pending, requestID)
	c.closed.Add(requestID, why)
	for i, id := range c.order {
		if id == requestID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
