// Package bootstrap runs the initial data loads every time the backend
// becomes available.
//
// The sequencer consumes one tracker subscription in a single loop. Each
// transition into Available triggers exactly one run: a balance check
// followed by a swap history fetch. Transitions that arrive while a run is
// in progress wait in the subscription's mailbox, so runs never overlap and
// are never dropped.
package bootstrap

import (
	"context"
	"sync"

	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/tracker"
)

// Backend is the subset of the daemon client the sequencer calls.
type Backend interface {
	CheckBalance(ctx context.Context) (daemon.Balance, error)
	FetchSwapHistory(ctx context.Context) ([]swaps.Record, error)
}

// Reporter receives the outcome of every step. Errors are reported here and
// never stop the sequencer. Refreshes outside a bootstrap run report run 0.
type Reporter interface {
	RunStarted(run int)
	BalanceChecked(run int, balance daemon.Balance, err error)
	HistoryFetched(run int, records []swaps.Record, err error)
	RunFinished(run int)
}

// Sequencer performs bootstrap runs.
type Sequencer struct {
	backend  Backend
	reporter Reporter
	sub      *tracker.Subscription
	refresh  chan struct{}

	mu   sync.Mutex
	runs int
}

// New subscribes to t immediately, so transitions published after New
// returns are never missed even if Run starts later.
func New(t *tracker.Tracker, backend Backend, reporter Reporter) *Sequencer {
	return &Sequencer{
		backend:  backend,
		reporter: reporter,
		sub:      t.Subscribe(),
		refresh:  make(chan struct{}, 1),
	}
}

// Run processes transitions until ctx is done. It must be called once.
func (s *Sequencer) Run(ctx context.Context) {
	defer s.sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-s.sub.C():
			if !ok {
				return
			}
			if tr.To.IsAvailable() {
				s.bootstrap(ctx)
			}
		case <-s.refresh:
			s.refreshHistory(ctx)
		}
	}
}

// Runs returns the number of completed bootstrap runs.
func (s *Sequencer) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// RefreshHistory queues a history-only fetch on the sequencer loop. Requests
// made while one is already queued coalesce.
func (s *Sequencer) RefreshHistory() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Sequencer) bootstrap(ctx context.Context) {
	s.mu.Lock()
	run := s.runs + 1
	s.mu.Unlock()

	events.Bootstrap.RunStart(run)
	s.reporter.RunStarted(run)

	balance, err := s.backend.CheckBalance(ctx)
	events.Bootstrap.Step(run, "balance", err)
	if err != nil {
		logging.Warn(err, "bootstrap balance check failed")
	}
	s.reporter.BalanceChecked(run, balance, err)

	records, err := s.backend.FetchSwapHistory(ctx)
	events.Bootstrap.Step(run, "history", err)
	if err != nil {
		logging.Warn(err, "bootstrap history fetch failed")
	}
	s.reporter.HistoryFetched(run, records, err)

	s.mu.Lock()
	s.runs = run
	s.mu.Unlock()

	events.Bootstrap.RunFinish(run)
	s.reporter.RunFinished(run)
}

func (s *Sequencer) refreshHistory(ctx context.Context) {
	records, err := s.backend.FetchSwapHistory(ctx)
	events.Bootstrap.Refresh(err)
	if err != nil {
		logging.Warn(err, "history refresh failed")
	}
	s.reporter.HistoryFetched(0, records, err)
}
