package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/ui/command"
)

var (
	errNoController = errors.New("swap control is not connected")
	errNoAckStore   = errors.New("feedback store is not available")
)

func (m *Model) handleActionResultMsg(msg tea.Msg) tea.Cmd {
	result, ok := msg.(command.Result)
	if !ok {
		return nil
	}
	if result.Err != nil {
		m.setError(fmt.Sprintf("%s: %v", result.Label, result.Err))
		events.Action.Error(result.Err)
	} else {
		if result.Info != "" && m.verbose {
			m.setInfo(result.Info)
		}
		events.Action.Success(result.Info)
	}
	m.syncLists()
	return nil
}

// resolveCmd answers a pending approval. The correlator drops the request
// before sending, so the row disappears even if the send later fails.
func (m *Model) resolveCmd(requestID string, decision approval.Decision) tea.Cmd {
	approvals := m.approvals
	return m.bus.Execute(command.Request{
		ID:    "approval:" + requestID,
		Label: "resolve " + requestID,
		Action: func(ctx context.Context) (string, error) {
			sent, err := approvals.Resolve(ctx, requestID, decision)
			if err != nil {
				return "", err
			}
			if !sent {
				return "", nil
			}
			return fmt.Sprintf("Sent %s for %s", decision, requestID), nil
		},
	})
}

func (m *Model) resumeCmd(swapID string) tea.Cmd {
	controller := m.controller
	refresher := m.refresher
	return m.bus.Execute(command.Request{
		ID:    "swap:resume:" + swapID,
		Label: "resume " + swapID,
		Action: func(ctx context.Context) (string, error) {
			if controller == nil {
				return "", errNoController
			}
			if err := controller.ResumeSwap(ctx, swapID); err != nil {
				return "", err
			}
			if refresher != nil {
				refresher.RefreshHistory()
			}
			return "Resumed " + swapID, nil
		},
	})
}

func (m *Model) suspendCmd() tea.Cmd {
	controller := m.controller
	return m.bus.Execute(command.Request{
		ID:    "swap:suspend",
		Label: "suspend",
		Action: func(ctx context.Context) (string, error) {
			if controller == nil {
				return "", errNoController
			}
			if err := controller.SuspendCurrentSwap(ctx); err != nil {
				return "", err
			}
			return "Suspended the running swap", nil
		},
	})
}

func (m *Model) buyCmd(req daemon.BuyRequest) tea.Cmd {
	controller := m.controller
	refresher := m.refresher
	return m.bus.Execute(command.Request{
		ID:    formBuy,
		Label: "buy xmr",
		Action: func(ctx context.Context) (string, error) {
			if controller == nil {
				return "", errNoController
			}
			swapID, err := controller.BuyXmr(ctx, req)
			if err != nil {
				return "", err
			}
			if refresher != nil {
				refresher.RefreshHistory()
			}
			return "Started swap " + swapID, nil
		},
	})
}

func (m *Model) withdrawCmd(req daemon.WithdrawRequest) tea.Cmd {
	controller := m.controller
	return m.bus.Execute(command.Request{
		ID:    formWithdraw,
		Label: "withdraw btc",
		Action: func(ctx context.Context) (string, error) {
			if controller == nil {
				return "", errNoController
			}
			res, err := controller.WithdrawBtc(ctx, req)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Withdrew %s BTC in %s", res.BTC(), res.TxID), nil
		},
	})
}

type feedbackStateMsg struct {
	id      string
	pending bool
	err     error
}

// loadFeedbackCmd checks whether the configured prompt was already
// acknowledged.
func (m *Model) loadFeedbackCmd() tea.Cmd {
	if m.feedbackID == "" || m.acks == nil {
		return nil
	}
	id := m.feedbackID
	acks := m.acks
	return func() tea.Msg {
		seen, err := acks.Has(context.Background(), id)
		return feedbackStateMsg{id: id, pending: err == nil && !seen, err: err}
	}
}

func (m *Model) handleFeedbackStateMsg(msg tea.Msg) tea.Cmd {
	state, ok := msg.(feedbackStateMsg)
	if !ok {
		return nil
	}
	if state.err != nil {
		logging.Error(state.err)
	}
	if state.id == m.feedbackID {
		m.feedbackPending = state.pending
	}
	return nil
}

// acknowledgeFeedbackCmd records the prompt as seen. The prompt is hidden
// immediately; a failed write only surfaces as a notice.
func (m *Model) acknowledgeFeedbackCmd() tea.Cmd {
	if !m.feedbackPending {
		return nil
	}
	m.feedbackPending = false
	id := m.feedbackID
	acks := m.acks
	return m.bus.Execute(command.Request{
		ID:    "feedback:" + id,
		Label: "acknowledge feedback",
		Action: func(ctx context.Context) (string, error) {
			if acks == nil {
				return "", errNoAckStore
			}
			seen, err := acks.Has(ctx, id)
			if err != nil {
				return "", err
			}
			if err := acks.Add(ctx, id); err != nil {
				return "", err
			}
			events.Feedback.Submit(id, seen)
			return "Feedback acknowledged", nil
		},
	})
}
