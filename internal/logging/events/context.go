package events

import (
	"time"

	"github.com/atomicstack/swap-control/internal/logging"
)

type ContextTracer struct{}

type BootstrapTracer struct{}

var (
	Context   = ContextTracer{}
	Bootstrap = BootstrapTracer{}
)

func (ContextTracer) Transition(seq uint64, from, to string) {
	logging.Trace("context.transition", map[string]interface{}{"seq": seq, "from": from, "to": to})
}

func (ContextTracer) Reconnect(attempt int, err error) {
	payload := map[string]interface{}{"attempt": attempt}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("context.reconnect", payload)
}

func (BootstrapTracer) RunStart(run int) {
	logging.Trace("bootstrap.run.start", map[string]interface{}{"run": run})
}

func (BootstrapTracer) Step(run int, step string, err error) {
	payload := map[string]interface{}{"run": run, "step": step}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("bootstrap.step", payload)
}

func (BootstrapTracer) RunFinish(run int) {
	logging.Trace("bootstrap.run.finish", map[string]interface{}{"run": run})
}

func (BootstrapTracer) Refresh(err error) {
	payload := map[string]interface{}{}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("bootstrap.refresh", payload)
}

type DaemonTracer struct{}

var Daemon = DaemonTracer{}

func (DaemonTracer) Call(method string, elapsed time.Duration, err error) {
	payload := map[string]interface{}{"method": method, "elapsed_ms": elapsed.Milliseconds()}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("daemon.call", payload)
}

func (DaemonTracer) Notification(method string) {
	logging.Trace("daemon.notification", map[string]interface{}{"method": method})
}

func (DaemonTracer) Breaker(from, to string) {
	logging.Trace("daemon.breaker", map[string]interface{}{"from": from, "to": to})
}
