package events

import "github.com/atomicstack/swap-control/internal/logging"

type ApprovalTracer struct{}

type FeedbackTracer struct{}

type SwapsTracer struct{}

var (
	Approval = ApprovalTracer{}
	Feedback = FeedbackTracer{}
	Swaps    = SwapsTracer{}
)

func (ApprovalTracer) Received(id, kind string) {
	logging.Trace("approval.received", map[string]interface{}{"request": id, "kind": kind})
}

func (ApprovalTracer) Superseded(id, kind string) {
	logging.Trace("approval.superseded", map[string]interface{}{"request": id, "kind": kind})
}

func (ApprovalTracer) Ignored(id, kind string) {
	logging.Trace("approval.ignored", map[string]interface{}{"request": id, "kind": kind})
}

func (ApprovalTracer) Resolved(id, decision string) {
	logging.Trace("approval.resolved", map[string]interface{}{"request": id, "decision": decision})
}

func (ApprovalTracer) Withdrawn(id string) {
	logging.Trace("approval.withdrawn", map[string]interface{}{"request": id})
}

func (ApprovalTracer) SendFailed(id string, err error) {
	logging.Trace("approval.send.error", map[string]interface{}{"request": id, "error": err.Error()})
}

func (FeedbackTracer) Submit(id string, duplicate bool) {
	logging.Trace("feedback.submit", map[string]interface{}{"id": id, "duplicate": duplicate})
}

func (SwapsTracer) Classified(total, resumable, punished, setup, completed, rejected int) {
	logging.Trace("swaps.classified", map[string]interface{}{
		"total":     total,
		"resumable": resumable,
		"punished":  punished,
		"setup":     setup,
		"completed": completed,
		"rejected":  rejected,
	})
}

func (SwapsTracer) Unrecognized(ids []string) {
	if len(ids) == 0 {
		return
	}
	logging.Trace("swaps.unrecognized", map[string]interface{}{"swaps": ids})
}

func (SwapsTracer) Progress(swapID, kind string) {
	logging.Trace("swaps.progress", map[string]interface{}{"swap": swapID, "type": kind})
}
