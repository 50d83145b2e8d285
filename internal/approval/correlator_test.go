package approval

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type sentDecision struct {
	id       string
	decision Decision
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentDecision
	err  error
}

func (s *recordingSender) ResolveApproval(_ context.Context, id string, d Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentDecision{id: id, decision: d})
	return s.err
}

func (s *recordingSender) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.sent {
		if d.id == id {
			n++
		}
	}
	return n
}

func quote(peer string, price string) Quote {
	return Quote{
		PeerID:      peer,
		Multiaddr:   "/dns4/" + peer + ".example/tcp/9939",
		Price:       decimal.RequireFromString(price),
		MinQuantity: decimal.RequireFromString("0.001"),
		MaxQuantity: decimal.RequireFromString("0.5"),
		Version:     "1.0.0",
	}
}

func pendingIDs(c *Correlator) []string {
	var ids []string
	for req := range c.Pending() {
		ids = append(ids, req.ID)
	}
	return ids
}

func TestSelectMakerScenario(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	quoteA, quoteB := quote("peerA", "0.0062"), quote("peerB", "0.0063")
	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker, Quotes: []Quote{quoteA, quoteB}})

	sent, err := c.Resolve(context.Background(), "r1", Accept(quoteA.PeerID))
	require.NoError(t, err)
	require.True(t, sent)
	require.NotContains(t, pendingIDs(c), "r1")

	sent, err = c.Resolve(context.Background(), "r1", Accept(quoteB.PeerID))
	require.NoError(t, err)
	require.False(t, sent)
	require.Equal(t, 1, sender.count("r1"))
	require.Equal(t, Accept("peerA"), sender.sent[0].decision)
}

func TestResolveUnknownIsSilentNoOp(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	sent, err := c.Resolve(context.Background(), "missing", Reject())
	require.NoError(t, err)
	require.False(t, sent)
	require.Empty(t, sender.sent)
}

func TestPendingRequestIsSupersededByNewPayload(t *testing.T) {
	c := NewCorrelator(&recordingSender{})
	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker, Quotes: []Quote{quote("a", "0.006")}})
	c.OnRequestReceived(Request{ID: "r2", Kind: KindConfirmSwapExecution, Swap: &SwapSummary{SwapID: "s1"}})
	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker, Quotes: []Quote{quote("b", "0.007"), quote("c", "0.008")}})

	require.Equal(t, 2, c.Len())
	require.Equal(t, []string{"r1", "r2"}, pendingIDs(c))
	req, ok := c.Get("r1")
	require.True(t, ok)
	require.Len(t, req.Quotes, 2)
	_, ok = req.Quote("a")
	require.False(t, ok)
}

func TestResolvedRequestIsNotResurrected(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	c.OnRequestReceived(Request{ID: "r1", Kind: KindConfirmSwapExecution})
	_, err := c.Resolve(context.Background(), "r1", Accept(""))
	require.NoError(t, err)

	c.OnRequestReceived(Request{ID: "r1", Kind: KindConfirmSwapExecution})
	require.Zero(t, c.Len())
	sent, err := c.Resolve(context.Background(), "r1", Accept(""))
	require.NoError(t, err)
	require.False(t, sent)
	require.Equal(t, 1, sender.count("r1"))
}

func TestConcurrentRequestsResolveIndependently(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	c.OnRequestReceived(Request{ID: "maker", Kind: KindSelectMaker, Quotes: []Quote{quote("p", "0.006")}})
	c.OnRequestReceived(Request{ID: "confirm", Kind: KindConfirmSwapExecution, Swap: &SwapSummary{SwapID: "s2"}})

	_, err := c.Resolve(context.Background(), "confirm", Reject())
	require.NoError(t, err)
	require.Equal(t, []string{"maker"}, pendingIDs(c))

	_, err = c.Resolve(context.Background(), "maker", Accept("p"))
	require.NoError(t, err)
	require.Empty(t, pendingIDs(c))
	require.Equal(t, []sentDecision{
		{id: "confirm", decision: Reject()},
		{id: "maker", decision: Accept("p")},
	}, sender.sent)
}

func TestSendFailureKeepsRequestResolved(t *testing.T) {
	boom := errors.New("socket closed")
	sender := &recordingSender{err: boom}
	c := NewCorrelator(sender)
	c.OnRequestReceived(Request{ID: "r1", Kind: KindConfirmSwapExecution})

	sent, err := c.Resolve(context.Background(), "r1", Accept(""))
	require.True(t, sent)
	require.ErrorIs(t, err, boom)

	sent, err = c.Resolve(context.Background(), "r1", Accept(""))
	require.False(t, sent)
	require.NoError(t, err)
	require.Equal(t, 1, sender.count("r1"))
}

func TestWithdrawMakesResolveNoOp(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker})
	require.True(t, c.Withdraw("r1"))
	require.False(t, c.Withdraw("r1"))

	sent, err := c.Resolve(context.Background(), "r1", Accept("x"))
	require.NoError(t, err)
	require.False(t, sent)
	require.Empty(t, sender.sent)

	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker})
	require.Zero(t, c.Len())
}

func TestWithdrawBeforeArrivalSuppressesLateRequest(t *testing.T) {
	c := NewCorrelator(&recordingSender{})
	require.False(t, c.Withdraw("late"))
	c.OnRequestReceived(Request{ID: "late", Kind: KindConfirmSwapExecution})
	require.Zero(t, c.Len())
}

func TestWithdrawAll(t *testing.T) {
	c := NewCorrelator(&recordingSender{})
	c.OnRequestReceived(Request{ID: "a"})
	c.OnRequestReceived(Request{ID: "b"})
	require.Equal(t, 2, c.WithdrawAll())
	require.Zero(t, c.Len())
	require.Zero(t, c.WithdrawAll())
	require.Zero(t, c.Tombstones())
}

func TestRequestResentAfterWithdrawAllIsPendingAgain(t *testing.T) {
	sender := &recordingSender{}
	c := NewCorrelator(sender)
	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker})
	c.OnRequestReceived(Request{ID: "r2", Kind: KindConfirmSwapExecution})
	sent, err := c.Resolve(context.Background(), "r2", Accept(""))
	require.NoError(t, err)
	require.True(t, sent)

	c.OnRequestReceived(Request{ID: "r3", Kind: KindConfirmSwapExecution})
	require.Equal(t, 2, c.WithdrawAll())

	c.OnRequestReceived(Request{ID: "r1", Kind: KindSelectMaker})
	c.OnRequestReceived(Request{ID: "r2", Kind: KindConfirmSwapExecution})
	require.Equal(t, 1, c.Len())
	_, ok := c.Get("r1")
	require.True(t, ok)

	sent, err = c.Resolve(context.Background(), "r1", Reject())
	require.NoError(t, err)
	require.True(t, sent)
	require.Equal(t, 1, sender.count("r1"))
	require.Equal(t, 1, sender.count("r2"))
}

func TestTombstonesAreBounded(t *testing.T) {
	c := newCorrelator(&recordingSender{}, 8)
	for i := 0; i < 20; i++ {
		c.Withdraw(fmt.Sprintf("w%d", i))
	}
	require.Equal(t, 8, c.Tombstones())

	// the most recent ids are still suppressed
	c.OnRequestReceived(Request{ID: "w19"})
	require.Zero(t, c.Len())

	// evicted ones are accepted again
	c.OnRequestReceived(Request{ID: "w0"})
	require.Equal(t, 1, c.Len())
}

func TestDefaultTombstoneCapacity(t *testing.T) {
	c := NewCorrelator(nil)
	for i := 0; i < maxTombstones+10; i++ {
		c.OnRequestReceived(Request{ID: fmt.Sprintf("r%d", i)})
		_, err := c.Resolve(context.Background(), fmt.Sprintf("r%d", i), Reject())
		require.NoError(t, err)
	}
	require.Equal(t, maxTombstones, c.Tombstones())
	require.Zero(t, c.Len())
}

func TestPendingIsRestartableSnapshot(t *testing.T) {
	c := NewCorrelator(&recordingSender{})
	c.OnRequestReceived(Request{ID: "a", Quotes: []Quote{quote("p", "0.006")}})
	c.OnRequestReceived(Request{ID: "b"})

	seq := c.Pending()
	c.OnRequestReceived(Request{ID: "c"})

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)
	require.Len(t, first, 2)

	first[0].Quotes[0].PeerID = "mutated"
	req, _ := c.Get("a")
	require.Equal(t, "p", req.Quotes[0].PeerID)

	for range c.Pending() {
		break
	}
}

func TestRandomSequencesNeverResendAnID(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"r1", "r2", "r3", "r4"}
	for round := 0; round < 50; round++ {
		sender := &recordingSender{}
		c := NewCorrelator(sender)
		for step := 0; step < 200; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(3) {
			case 0:
				c.OnRequestReceived(Request{ID: id, Kind: KindConfirmSwapExecution})
			case 1:
				_, _ = c.Resolve(context.Background(), id, Accept(""))
			default:
				_, _ = c.Resolve(context.Background(), id, Reject())
			}
		}
		for _, id := range ids {
			require.LessOrEqual(t, sender.count(id), 1, "round %d id %s", round, id)
		}
	}
}

func TestParseKind(t *testing.T) {
	require.Equal(t, KindSelectMaker, ParseKind("SelectMaker"))
	require.Equal(t, KindConfirmSwapExecution, ParseKind("ConfirmSwapExecution"))
	require.Equal(t, KindUnknown, ParseKind("LockBitcoin"))
}
