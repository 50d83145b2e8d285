package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/swaps"
)

// approvalRow is one selectable line in the approvals panel. A SelectMaker
// request contributes one row per quote.
type approvalRow struct {
	request approval.Request
	quote   *approval.Quote
}

func (m *Model) approvalRows() []approvalRow {
	var rows []approvalRow
	for req := range m.approvals.Pending() {
		if req.Kind == approval.KindSelectMaker && len(req.Quotes) > 0 {
			for i := range req.Quotes {
				rows = append(rows, approvalRow{request: req, quote: &req.Quotes[i]})
			}
			continue
		}
		rows = append(rows, approvalRow{request: req})
	}
	return rows
}

func (m *Model) selectedApproval() (approvalRow, bool) {
	rows := m.approvalRows()
	if m.approvalL.Cursor < 0 || m.approvalL.Cursor >= len(rows) {
		return approvalRow{}, false
	}
	return rows[m.approvalL.Cursor], true
}

func (m *Model) selectedSwap() (swaps.Record, bool) {
	resumable := m.swaps.Partition().Resumable
	if m.swapL.Cursor < 0 || m.swapL.Cursor >= len(resumable) {
		return swaps.Record{}, false
	}
	return resumable[m.swapL.Cursor], true
}

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "esc":
		if m.dismissNotice() {
			events.UI.NoticeDismissed("esc")
		}
		return nil
	case "tab":
		if m.focus == PanelApprovals {
			m.focus = PanelSwaps
		} else {
			m.focus = PanelApprovals
		}
		events.UI.Focus(m.focus.String(), m.activeList().Cursor)
		return nil
	case "up", "k":
		m.moveCursor(m.activeList().MoveCursorUp)
		return nil
	case "down", "j":
		m.moveCursor(m.activeList().MoveCursorDown)
		return nil
	case "home":
		m.moveCursor(m.activeList().MoveCursorHome)
		return nil
	case "end":
		m.moveCursor(m.activeList().MoveCursorEnd)
		return nil
	case "pgup":
		list := m.activeList()
		m.moveCursor(func() bool { return list.MoveCursorPageUp(m.maxVisible()) })
		return nil
	case "pgdown":
		list := m.activeList()
		m.moveCursor(func() bool { return list.MoveCursorPageDown(m.maxVisible()) })
		return nil
	case "enter":
		return m.acceptSelected()
	case "x":
		return m.rejectSelected()
	case "r":
		return m.resumeSelected()
	case "s":
		return m.suspendCmd()
	case "b":
		return m.openForm(newBuyForm())
	case "w":
		return m.openForm(newWithdrawForm())
	case "g":
		if m.refresher != nil {
			m.refresher.RefreshHistory()
		}
		return nil
	case "f":
		return m.acknowledgeFeedbackCmd()
	}
	return nil
}

func (m *Model) moveCursor(move func() bool) {
	if move() {
		m.activeList().EnsureCursorVisible(m.maxVisible())
		events.UI.Focus(m.focus.String(), m.activeList().Cursor)
	}
}

func (m *Model) acceptSelected() tea.Cmd {
	if m.focus == PanelSwaps {
		return m.resumeSelected()
	}
	row, ok := m.selectedApproval()
	if !ok {
		return nil
	}
	switch row.request.Kind {
	case approval.KindSelectMaker:
		if row.quote == nil {
			m.setError(fmt.Sprintf("request %s carries no quotes", row.request.ID))
			return nil
		}
		return m.resolveCmd(row.request.ID, approval.Accept(row.quote.PeerID))
	case approval.KindConfirmSwapExecution:
		return m.resolveCmd(row.request.ID, approval.Accept(""))
	default:
		m.setError(fmt.Sprintf("request %s has an unsupported kind; press x to reject", row.request.ID))
		return nil
	}
}

func (m *Model) rejectSelected() tea.Cmd {
	if m.focus != PanelApprovals {
		return nil
	}
	row, ok := m.selectedApproval()
	if !ok {
		return nil
	}
	return m.resolveCmd(row.request.ID, approval.Reject())
}

func (m *Model) resumeSelected() tea.Cmd {
	if m.focus != PanelSwaps {
		return nil
	}
	rec, ok := m.selectedSwap()
	if !ok {
		return nil
	}
	return m.resumeCmd(rec.ID)
}
