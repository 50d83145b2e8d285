package dispatcher

import (
	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/state"
	"github.com/atomicstack/swap-control/internal/tracker"
)

type Result struct {
	ContextChanged   bool
	Transition       tracker.Transition
	ApprovalsChanged bool
	ProgressUpdated  bool
	// RefreshHistory is set when a swap reached a terminal step and the
	// cached history no longer matches the daemon.
	RefreshHistory bool
	// Err carries a transport failure for the notice area.
	Err error
}

type Dispatcher struct {
	tracker   *tracker.Tracker
	approvals *approval.Correlator
	progress  state.ProgressStore
}

func New(t *tracker.Tracker, c *approval.Correlator, p state.ProgressStore) *Dispatcher {
	return &Dispatcher{tracker: t, approvals: c, progress: p}
}

func (d *Dispatcher) Handle(evt backend.Event) Result {
	var res Result
	if evt.Err != nil {
		res.Err = evt.Err
		return res
	}
	switch evt.Kind {
	case backend.KindContextStatus:
		if status, ok := evt.Data.(tracker.Status); ok {
			tr := d.tracker.Publish(status)
			events.Context.Transition(tr.Seq, tr.From.String(), tr.To.String())
			res.ContextChanged = true
			res.Transition = tr
			// nothing pending can be answered while the daemon is not
			// Available; it re-sends what it still waits on afterwards
			if tr.From.IsAvailable() && !tr.To.IsAvailable() {
				res.ApprovalsChanged = d.approvals.WithdrawAll() > 0
			}
		}
	case backend.KindApprovalRequested:
		if req, ok := evt.Data.(approval.Request); ok {
			d.approvals.OnRequestReceived(req)
			res.ApprovalsChanged = true
		}
	case backend.KindApprovalWithdrawn:
		if w, ok := evt.Data.(backend.Withdrawal); ok {
			res.ApprovalsChanged = d.approvals.Withdraw(w.RequestID)
		}
	case backend.KindSwapProgress:
		if p, ok := evt.Data.(backend.SwapProgress); ok {
			d.progress.Set(p)
			events.Swaps.Progress(p.SwapID, p.Type)
			res.ProgressUpdated = true
			res.RefreshHistory = p.Terminal()
		}
	}
	return res
}
