package events

import "github.com/atomicstack/swap-control/internal/logging"

type UITracer struct{}

type ActionTracer struct{}

type CommandTracer struct{}

var (
	UI      = UITracer{}
	Action  = ActionTracer{}
	Command = CommandTracer{}
)

func (UITracer) Focus(panel string, cursor int) {
	logging.Trace("ui.focus", map[string]interface{}{"panel": panel, "cursor": cursor})
}

func (UITracer) NoticeDismissed(notice string) {
	logging.Trace("ui.notice.dismiss", map[string]interface{}{"notice": notice})
}

func (ActionTracer) Error(err error) {
	if err == nil {
		return
	}
	logging.Trace("action.error", map[string]interface{}{"error": err.Error()})
}

func (ActionTracer) Success(info string) {
	logging.Trace("action.success", map[string]interface{}{"info": info})
}

func (CommandTracer) Queue(id, label string) {
	logging.Trace("command.queue", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Skip(id, label string) {
	logging.Trace("command.skip", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) NoOp(id, label string) {
	logging.Trace("command.noop", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Result(id, label, msgType string) {
	logging.Trace("command.result", map[string]interface{}{"id": id, "label": label, "msg": msgType})
}

func (UITracer) Form(action, outcome string) {
	logging.Trace("ui.form", map[string]interface{}{"action": action, "outcome": outcome})
}
