package ui

import (
	"context"
	"reflect"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/ackstore"
	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/data/dispatcher"
	"github.com/atomicstack/swap-control/internal/state"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/theme"
	"github.com/atomicstack/swap-control/internal/tracker"
	"github.com/atomicstack/swap-control/internal/ui/command"
	uistate "github.com/atomicstack/swap-control/internal/ui/state"
)

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Panel identifies which list receives cursor keys.
type Panel int

const (
	PanelApprovals Panel = iota
	PanelSwaps
)

func (p Panel) String() string {
	if p == PanelSwaps {
		return "swaps"
	}
	return "approvals"
}

// SwapController is the subset of the daemon client used for user-driven
// swap control.
type SwapController interface {
	ResumeSwap(ctx context.Context, swapID string) error
	SuspendCurrentSwap(ctx context.Context) error
	BuyXmr(ctx context.Context, req daemon.BuyRequest) (string, error)
	WithdrawBtc(ctx context.Context, req daemon.WithdrawRequest) (daemon.Withdrawal, error)
}

// HistoryRefresher queues a swap history fetch.
type HistoryRefresher interface {
	RefreshHistory()
}

// Options wires the model to the rest of the application. Watcher, Acks,
// Controller and Refresher may be nil in tests.
type Options struct {
	Width      int
	Height     int
	ShowFooter bool
	Verbose    bool

	Watcher    *backend.Watcher
	Tracker    *tracker.Tracker
	Approvals  *approval.Correlator
	Controller SwapController
	Refresher  HistoryRefresher
	Acks       ackstore.Store
	Classifier *swaps.Classifier

	FeedbackPromptID string
	ActionTimeout    time.Duration
}

// Model implements the Bubble Tea model for the swap control panel.
type Model struct {
	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool
	showFooter  bool
	verbose     bool

	loading bool
	run     int
	errMsg  string
	infoMsg string
	spinner spinner.Model

	focus     Panel
	approvalL uistate.List
	swapL     uistate.List

	feedbackID      string
	feedbackPending bool

	form *promptForm

	handlers map[reflect.Type]msgHandler

	backend    *backend.Watcher
	bus        *command.Bus
	tracker    *tracker.Tracker
	approvals  *approval.Correlator
	controller SwapController
	refresher  HistoryRefresher
	acks       ackstore.Store
	swaps      state.SwapStore
	balance    state.BalanceStore
	progress   state.ProgressStore
	dispatcher *dispatcher.Dispatcher
}

// NewModel builds the model and its stores.
func NewModel(opts Options) *Model {
	t := opts.Tracker
	if t == nil {
		t = tracker.New()
	}
	approvals := opts.Approvals
	if approvals == nil {
		approvals = approval.NewCorrelator(nil)
	}
	progress := state.NewProgressStore()

	s := spinner.New()
	s.Spinner = spinner.Dot
	if styles.Spinner != nil {
		s.Style = *styles.Spinner
	}

	m := &Model{
		showFooter: opts.ShowFooter,
		verbose:    opts.Verbose,
		spinner:    s,
		feedbackID: opts.FeedbackPromptID,
		backend:    opts.Watcher,
		bus:        command.New(opts.ActionTimeout),
		tracker:    t,
		approvals:  approvals,
		controller: opts.Controller,
		refresher:  opts.Refresher,
		acks:       opts.Acks,
		swaps:      state.NewSwapStore(opts.Classifier),
		balance:    state.NewBalanceStore(),
		progress:   progress,
		dispatcher: dispatcher.New(t, approvals, progress),
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if m.backend != nil {
		cmds = append(cmds, waitForBackendEvent(m.backend))
	}
	if cmd := m.loadFeedbackCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handled, cmd := m.handlePromptForm(msg); handled {
		return m, cmd
	}
	if handler := m.handlerFor(msg); handler != nil {
		return m, handler(msg)
	}
	return m, nil
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):           m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}):    m.handleWindowSizeMsg,
		reflect.TypeOf(spinner.TickMsg{}):      m.handleSpinnerTickMsg,
		reflect.TypeOf(backendEventMsg{}):      m.handleBackendEventMsg,
		reflect.TypeOf(backendDoneMsg{}):       m.handleBackendDoneMsg,
		reflect.TypeOf(bootstrapStartedMsg{}):  m.handleBootstrapStartedMsg,
		reflect.TypeOf(balanceCheckedMsg{}):    m.handleBalanceCheckedMsg,
		reflect.TypeOf(historyFetchedMsg{}):    m.handleHistoryFetchedMsg,
		reflect.TypeOf(bootstrapFinishedMsg{}): m.handleBootstrapFinishedMsg,
		reflect.TypeOf(command.Result{}):       m.handleActionResultMsg,
		reflect.TypeOf(feedbackStateMsg{}):     m.handleFeedbackStateMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	size, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = size.Width
	}
	if !m.fixedHeight {
		m.height = size.Height
	}
	return nil
}

func (m *Model) handleSpinnerTickMsg(msg tea.Msg) tea.Cmd {
	if !m.loading {
		return nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

// Status returns the backend status as last published.
func (m *Model) Status() tracker.Status {
	return m.tracker.Current()
}

// Focus returns the panel that receives cursor keys.
func (m *Model) Focus() Panel {
	return m.focus
}

func (m *Model) setError(text string) {
	m.errMsg = text
	m.infoMsg = ""
}

func (m *Model) setInfo(text string) {
	m.infoMsg = text
}

func (m *Model) dismissNotice() bool {
	if m.errMsg == "" && m.infoMsg == "" {
		return false
	}
	m.errMsg = ""
	m.infoMsg = ""
	return true
}

// syncLists keeps both cursors in range and moves focus to whichever panel
// has rows, preferring approvals.
func (m *Model) syncLists() {
	m.approvalL.SetLen(len(m.approvalRows()))
	m.swapL.SetLen(m.swaps.Partition().ResumableCount())
	if m.focus == PanelApprovals && m.approvalL.Len() == 0 && m.swapL.Len() > 0 {
		m.focus = PanelSwaps
	}
}

func (m *Model) activeList() *uistate.List {
	if m.focus == PanelSwaps {
		return &m.swapL
	}
	return &m.approvalL
}

func (m *Model) maxVisible() int {
	if m.height <= 0 {
		return 0
	}
	rows := (m.height - 12) / 2
	if rows < 3 {
		rows = 3
	}
	return rows
}
