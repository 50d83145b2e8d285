package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Transition {
	t.Helper()
	select {
	case tr, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return tr
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transition")
	}
	return Transition{}
}

func TestTrackerStartsUninitialized(t *testing.T) {
	tr := New()
	require.Equal(t, Uninitialized, tr.Current())
}

func TestPublishDeliversInOrderToEverySubscriber(t *testing.T) {
	tr := New()
	a := tr.Subscribe()
	b := tr.Subscribe()
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)

	statuses := []Status{Initializing, Available, Failed("wallet locked"), Available}
	for _, st := range statuses {
		tr.Publish(st)
	}

	for _, sub := range []*Subscription{a, b} {
		prev := Uninitialized
		for i, want := range statuses {
			got := receive(t, sub)
			require.Equal(t, uint64(i+1), got.Seq)
			require.Equal(t, prev, got.From)
			require.Equal(t, want, got.To)
			prev = want
		}
	}
	require.Equal(t, Available, tr.Current())
}

func TestFailedIsDeliveredAsNormalTransition(t *testing.T) {
	tr := New()
	sub := tr.Subscribe()
	t.Cleanup(sub.Close)

	tr.Publish(Failed("bitcoin wallet sync failed"))
	got := receive(t, sub)
	require.Equal(t, PhaseFailed, got.To.Phase)
	require.Equal(t, "bitcoin wallet sync failed", got.To.Reason)
	require.Equal(t, "failed: bitcoin wallet sync failed", got.To.String())
}

func TestLateSubscriberMissesEarlierTransitions(t *testing.T) {
	tr := New()
	tr.Publish(Initializing)
	sub := tr.Subscribe()
	t.Cleanup(sub.Close)
	tr.Publish(Available)

	got := receive(t, sub)
	require.Equal(t, Initializing, got.From)
	require.Equal(t, Available, got.To)

	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected extra transition %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	tr := New()
	sub := tr.Subscribe()
	t.Cleanup(sub.Close)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			tr.Publish(Available)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked on an idle subscriber")
	}
	for i := 1; i <= 1000; i++ {
		require.Equal(t, uint64(i), receive(t, sub).Seq)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	tr := New()
	sub := tr.Subscribe()
	sub.Close()
	sub.Close()
	tr.Publish(Available)

	select {
	case _, ok := <-sub.C():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after Close")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		tag, reason string
		want        Status
	}{
		{"Available", "", Available},
		{"initializing", "", Initializing},
		{"Uninitialized", "", Uninitialized},
		{"Failed", "tor bootstrap failed", Failed("tor bootstrap failed")},
		{"Exploded", "", Failed(`unknown context status "Exploded"`)},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseStatus(tc.tag, tc.reason), tc.tag)
	}
}
