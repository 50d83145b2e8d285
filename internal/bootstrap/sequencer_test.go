package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/tracker"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	balanceErr error
	history    []swaps.Record
	gate       chan struct{}

	active  atomic.Int32
	overlap atomic.Bool
}

func (b *fakeBackend) enter(name string) {
	if b.active.Add(1) > 1 {
		b.overlap.Store(true)
	}
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
}

func (b *fakeBackend) CheckBalance(ctx context.Context) (daemon.Balance, error) {
	b.enter("balance")
	defer b.active.Add(-1)
	if b.balanceErr != nil {
		return daemon.Balance{}, b.balanceErr
	}
	return daemon.Balance{Sats: 1000}, nil
}

func (b *fakeBackend) FetchSwapHistory(ctx context.Context) ([]swaps.Record, error) {
	b.enter("history")
	defer b.active.Add(-1)
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.history, nil
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type recordingReporter struct {
	mu       sync.Mutex
	log      []string
	finished chan int
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{finished: make(chan int, 32)}
}

func (r *recordingReporter) add(entry string) {
	r.mu.Lock()
	r.log = append(r.log, entry)
	r.mu.Unlock()
}

func (r *recordingReporter) RunStarted(run int) { r.add(fmt.Sprintf("start %d", run)) }

func (r *recordingReporter) BalanceChecked(run int, _ daemon.Balance, err error) {
	r.add(fmt.Sprintf("balance %d err=%v", run, err != nil))
}

func (r *recordingReporter) HistoryFetched(run int, records []swaps.Record, err error) {
	r.add(fmt.Sprintf("history %d n=%d err=%v", run, len(records), err != nil))
	if run == 0 {
		r.finished <- 0
	}
}

func (r *recordingReporter) RunFinished(run int) {
	r.add(fmt.Sprintf("finish %d", run))
	r.finished <- run
}

func (r *recordingReporter) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recordingReporter) waitFinished(t *testing.T, want int) {
	t.Helper()
	select {
	case got := <-r.finished:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("run %d did not finish", want)
	}
}

func startSequencer(t *testing.T, tr *tracker.Tracker, b Backend, r Reporter) *Sequencer {
	t.Helper()
	s := New(tr, b, r)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func TestAvailableTriggersBalanceThenHistory(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{history: []swaps.Record{{ID: "s1", StateName: swaps.StateBtcLocked}}}
	r := newRecordingReporter()
	s := startSequencer(t, tr, b, r)

	tr.Publish(tracker.Initializing)
	tr.Publish(tracker.Available)
	r.waitFinished(t, 1)

	require.Equal(t, []string{"balance", "history"}, b.Calls())
	require.Equal(t, []string{"start 1", "balance 1 err=false", "history 1 n=1 err=false", "finish 1"}, r.Log())
	require.Equal(t, 1, s.Runs())
}

func TestNonAvailableTransitionsDoNothing(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{}
	r := newRecordingReporter()
	startSequencer(t, tr, b, r)

	tr.Publish(tracker.Initializing)
	tr.Publish(tracker.Failed("boom"))
	tr.Publish(tracker.Available)
	r.waitFinished(t, 1)

	require.Equal(t, []string{"balance", "history"}, b.Calls())
}

func TestBalanceFailureStillFetchesHistory(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{balanceErr: errors.New("wallet locked")}
	r := newRecordingReporter()
	startSequencer(t, tr, b, r)

	tr.Publish(tracker.Available)
	r.waitFinished(t, 1)

	require.Equal(t, []string{"balance", "history"}, b.Calls())
	require.Contains(t, r.Log(), "balance 1 err=true")
	require.Contains(t, r.Log(), "history 1 n=0 err=false")
}

func TestAvailableDuringRunIsQueuedNotOverlapped(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{gate: make(chan struct{})}
	r := newRecordingReporter()
	s := startSequencer(t, tr, b, r)

	tr.Publish(tracker.Available)
	require.Eventually(t, func() bool { return len(b.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)

	// history of run 1 is blocked; a second Available must wait for it
	tr.Publish(tracker.Initializing)
	tr.Publish(tracker.Available)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, []string{"balance", "history"}, b.Calls())

	b.gate <- struct{}{}
	r.waitFinished(t, 1)
	b.gate <- struct{}{}
	r.waitFinished(t, 2)

	require.Equal(t, []string{"balance", "history", "balance", "history"}, b.Calls())
	require.False(t, b.overlap.Load())
	require.Equal(t, 2, s.Runs())
}

func TestEveryAvailableProducesOneRun(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{}
	r := newRecordingReporter()
	s := startSequencer(t, tr, b, r)

	const n = 5
	for i := 0; i < n; i++ {
		tr.Publish(tracker.Available)
	}
	for i := 1; i <= n; i++ {
		r.waitFinished(t, i)
	}
	require.Equal(t, n, s.Runs())
	require.Len(t, b.Calls(), 2*n)
	require.False(t, b.overlap.Load())
}

func TestRefreshHistoryRunsOnTheLoop(t *testing.T) {
	tr := tracker.New()
	b := &fakeBackend{history: []swaps.Record{{ID: "s1", StateName: swaps.StateBtcLocked}}}
	r := newRecordingReporter()
	s := startSequencer(t, tr, b, r)

	s.RefreshHistory()
	r.waitFinished(t, 0)

	require.Equal(t, []string{"history"}, b.Calls())
	require.Equal(t, []string{"history 0 n=1 err=false"}, r.Log())
	require.Zero(t, s.Runs())
}
