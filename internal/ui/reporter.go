package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/swaps"
)

type bootstrapStartedMsg struct {
	run int
}

type balanceCheckedMsg struct {
	run     int
	balance daemon.Balance
	err     error
}

type historyFetchedMsg struct {
	run     int
	records []swaps.Record
	err     error
}

type bootstrapFinishedMsg struct {
	run int
}

// Reporter forwards bootstrap results into a running program. Messages
// reported before Attach are dropped.
type Reporter struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewReporter returns a detached reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Attach routes messages to send, typically tea.Program.Send.
func (r *Reporter) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
}

func (r *Reporter) deliver(msg tea.Msg) {
	r.mu.RLock()
	send := r.send
	r.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (r *Reporter) RunStarted(run int) {
	r.deliver(bootstrapStartedMsg{run: run})
}

func (r *Reporter) BalanceChecked(run int, balance daemon.Balance, err error) {
	r.deliver(balanceCheckedMsg{run: run, balance: balance, err: err})
}

func (r *Reporter) HistoryFetched(run int, records []swaps.Record, err error) {
	r.deliver(historyFetchedMsg{run: run, records: records, err: err})
}

func (r *Reporter) RunFinished(run int) {
	r.deliver(bootstrapFinishedMsg{run: run})
}

func (m *Model) handleBootstrapStartedMsg(msg tea.Msg) tea.Cmd {
	started, ok := msg.(bootstrapStartedMsg)
	if !ok {
		return nil
	}
	m.run = started.run
	wasLoading := m.loading
	m.loading = true
	if wasLoading {
		return nil
	}
	return m.spinner.Tick
}

func (m *Model) handleBalanceCheckedMsg(msg tea.Msg) tea.Cmd {
	checked, ok := msg.(balanceCheckedMsg)
	if !ok {
		return nil
	}
	if checked.err != nil {
		m.setError("balance: " + checked.err.Error())
		return nil
	}
	m.balance.SetBalance(checked.balance)
	return nil
}

func (m *Model) handleHistoryFetchedMsg(msg tea.Msg) tea.Cmd {
	fetched, ok := msg.(historyFetchedMsg)
	if !ok {
		return nil
	}
	if fetched.err != nil {
		m.setError("swap history: " + fetched.err.Error())
		return nil
	}
	m.swaps.SetRecords(fetched.records)
	p := m.swaps.Partition()
	events.Swaps.Classified(p.Total()+len(p.Rejected), len(p.Resumable), len(p.Punished), len(p.SetupIncomplete), len(p.Completed), len(p.Rejected))
	if len(p.Unrecognized) > 0 {
		events.Swaps.Unrecognized(p.Unrecognized)
	}
	for _, rejected := range p.Rejected {
		logging.Warn(rejected, "swap history")
	}
	m.syncLists()
	return nil
}

func (m *Model) handleBootstrapFinishedMsg(msg tea.Msg) tea.Cmd {
	finished, ok := msg.(bootstrapFinishedMsg)
	if !ok {
		return nil
	}
	if finished.run == m.run {
		m.loading = false
	}
	return nil
}
