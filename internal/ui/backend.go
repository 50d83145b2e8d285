package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/tracker"
)

func waitForBackendEvent(w *backend.Watcher) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-w.Events()
		if !ok {
			return backendDoneMsg{}
		}
		return backendEventMsg{event: evt}
	}
}

type backendEventMsg struct {
	event backend.Event
}

type backendDoneMsg struct{}

func (m *Model) handleBackendEventMsg(msg tea.Msg) tea.Cmd {
	eventMsg, ok := msg.(backendEventMsg)
	if !ok {
		return nil
	}
	cmd := m.applyBackendEvent(eventMsg.event)
	if m.backend != nil {
		waitCmd := waitForBackendEvent(m.backend)
		if cmd != nil {
			return tea.Batch(cmd, waitCmd)
		}
		return waitCmd
	}
	return cmd
}

func (m *Model) handleBackendDoneMsg(tea.Msg) tea.Cmd {
	m.backend = nil
	return nil
}

func (m *Model) applyBackendEvent(evt backend.Event) tea.Cmd {
	res := m.dispatcher.Handle(evt)
	if res.Err != nil {
		logging.Warn(res.Err, "daemon connection")
		m.setError(res.Err.Error())
		return nil
	}

	if res.ContextChanged {
		switch to := res.Transition.To; to.Phase {
		case tracker.PhaseFailed:
			m.setError("daemon " + to.String())
		case tracker.PhaseAvailable:
			if res.Transition.From.Phase == tracker.PhaseFailed {
				m.errMsg = ""
			}
		}
	}
	if res.ApprovalsChanged && m.approvals.Len() > 0 {
		m.focus = PanelApprovals
	}
	if res.RefreshHistory && m.refresher != nil {
		m.refresher.RefreshHistory()
	}
	m.syncLists()
	return nil
}
