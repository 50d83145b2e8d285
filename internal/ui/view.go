package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/format/table"
	"github.com/atomicstack/swap-control/internal/tracker"
)

const footerHint = "enter accept · x reject · r resume · s suspend · b buy · w withdraw · g refresh · tab switch · q quit"

// View renders the current model state.
func (m *Model) View() string {
	lines := []string{m.headerLine()}
	lines = append(lines, m.approvalLines()...)
	lines = append(lines, m.swapLines()...)
	if m.form != nil {
		lines = append(lines, "")
		lines = append(lines, m.form.lines()...)
	}
	if m.feedbackPending {
		lines = append(lines, "", styled(styles.Info, "Tell us how your swaps went. Press f to dismiss this prompt."))
	}
	if m.errMsg != "" {
		lines = append(lines, "", styled(styles.Error, m.errMsg))
	} else if m.infoMsg != "" {
		lines = append(lines, "", styled(styles.Info, m.infoMsg))
	}
	if m.showFooter {
		lines = append(lines, "", styled(styles.Footer, footerHint))
	}
	if m.width > 0 {
		for i, line := range lines {
			if lipgloss.Width(line) > m.width {
				lines[i] = table.Truncate(line, m.width)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) headerLine() string {
	status := m.tracker.Current()
	parts := []string{
		styled(styles.Title, "swap-control"),
		styled(statusStyle(status), status.String()),
	}
	if bal, ok := m.balance.Balance(); ok {
		parts = append(parts, bal.BTC().StringFixed(8)+" BTC")
	}
	if n := m.swaps.Partition().ResumableCount(); n > 0 {
		parts = append(parts, styled(styles.Badge, fmt.Sprintf("%d resumable", n)))
	}
	if m.loading {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, "  ")
}

func statusStyle(status tracker.Status) *lipgloss.Style {
	switch status.Phase {
	case tracker.PhaseAvailable:
		return styles.StatusAvailable
	case tracker.PhaseFailed:
		return styles.StatusFailed
	default:
		return styles.StatusPending
	}
}

func (m *Model) approvalLines() []string {
	lines := []string{styled(styles.Section, "Approvals")}
	rows := m.approvalRows()
	if len(rows) == 0 {
		return append(lines, styled(styles.Muted, "  nothing awaiting a decision"))
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = approvalCells(row)
	}
	formatted := table.Format(cells, []table.Alignment{table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignRight, table.AlignLeft})
	return append(lines, m.renderList(formatted, PanelApprovals)...)
}

func approvalCells(row approvalRow) []string {
	req := row.request
	switch {
	case row.quote != nil:
		q := row.quote
		return []string{
			"select maker",
			shortID(q.PeerID),
			q.Price.String() + " BTC/XMR",
			q.MinQuantity.String() + "-" + q.MaxQuantity.String() + " BTC",
			req.ID,
		}
	case req.Kind == approval.KindConfirmSwapExecution && req.Swap != nil:
		s := req.Swap
		return []string{
			"confirm swap",
			shortID(s.SwapID),
			"lock " + s.BtcLockAmount.String() + " BTC",
			"get " + s.XmrReceive.String() + " XMR",
			req.ID,
		}
	default:
		return []string{string(req.Kind), "", "", "", req.ID}
	}
}

func (m *Model) swapLines() []string {
	lines := []string{styled(styles.Section, "Resumable swaps")}
	if !m.swaps.Loaded() {
		return append(lines, styled(styles.Muted, "  waiting for swap history"))
	}
	p := m.swaps.Partition()
	if len(p.Resumable) > 0 {
		cells := make([][]string, len(p.Resumable))
		for i, rec := range p.Resumable {
			step := rec.StateName
			if progress, ok := m.progress.Get(rec.ID); ok {
				step = progress.Type
			}
			cells[i] = []string{shortID(rec.ID), step, rec.BtcAmount.String() + " BTC", shortID(rec.PeerID)}
		}
		formatted := table.Format(cells, []table.Alignment{table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignLeft})
		lines = append(lines, m.renderList(formatted, PanelSwaps)...)
	} else {
		lines = append(lines, styled(styles.Muted, "  no swaps to resume"))
	}
	summary := fmt.Sprintf("  %d completed · %d punished · %d in setup", len(p.Completed), len(p.Punished), len(p.SetupIncomplete))
	if len(p.Rejected) > 0 {
		summary += fmt.Sprintf(" · %d unreadable", len(p.Rejected))
	}
	return append(lines, styled(styles.Muted, summary))
}

func (m *Model) renderList(formatted []string, panel Panel) []string {
	list := &m.approvalL
	if panel == PanelSwaps {
		list = &m.swapL
	}
	// approvals can be resolved off the UI goroutine between syncs
	list.SetLen(len(formatted))
	start, end := list.Window(m.maxVisible())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		selected := m.focus == panel && i == list.Cursor
		lines = append(lines, renderRow(formatted[i], selected))
	}
	return lines
}

func renderRow(text string, selected bool) string {
	if selected {
		return styled(styles.SelectedItemIndicator, "▌") + styled(styles.SelectedItem, " "+text)
	}
	return styled(styles.ItemIndicator, " ") + styled(styles.Item, " "+text)
}

func styled(style *lipgloss.Style, text string) string {
	if style == nil {
		return text
	}
	return style.Render(text)
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8] + "…"
}
