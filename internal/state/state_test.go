package state

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/swaps"
)

func TestSwapStoreClassifiesOnSet(t *testing.T) {
	store := NewSwapStore(nil)
	require.False(t, store.Loaded())

	records := []swaps.Record{
		{ID: "s1", StateName: swaps.StateBtcLocked},
		{ID: "s2", StateName: swaps.StateNegotiating},
	}
	store.SetRecords(records)
	require.True(t, store.Loaded())

	p := store.Partition()
	require.Equal(t, 1, p.ResumableCount())
	require.Len(t, p.SetupIncomplete, 1)

	records[0].StateName = swaps.StateBtcPunished
	require.Equal(t, swaps.StateBtcLocked, store.Records()[0].StateName)

	p.Resumable[0].ID = "mutated"
	require.Equal(t, "s1", store.Partition().Resumable[0].ID)
}

func TestSwapStoreReplacesWholesale(t *testing.T) {
	store := NewSwapStore(swaps.NewClassifier(nil))
	store.SetRecords([]swaps.Record{{ID: "s1", StateName: swaps.StateBtcLocked}})
	store.SetRecords([]swaps.Record{{ID: "s2", StateName: swaps.StateXmrLocked}})

	records := store.Records()
	require.Len(t, records, 1)
	require.Equal(t, "s2", records[0].ID)
}

func TestBalanceStore(t *testing.T) {
	store := NewBalanceStore()
	_, ok := store.Balance()
	require.False(t, ok)

	store.SetBalance(daemon.Balance{Sats: 42})
	bal, ok := store.Balance()
	require.True(t, ok)
	require.Equal(t, uint64(42), bal.Sats)
}

func TestProgressStoreKeepsLatestPerSwap(t *testing.T) {
	store := NewProgressStore()
	now := time.Now()
	store.Set(backend.SwapProgress{SwapID: "b", Type: "Started", ReceivedAt: now})
	store.Set(backend.SwapProgress{SwapID: "a", Type: "BtcLocked", Content: json.RawMessage(`{"x":1}`)})
	store.Set(backend.SwapProgress{SwapID: "b", Type: "XmrLocked"})
	store.Set(backend.SwapProgress{Type: "ignored"})

	all := store.All()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].SwapID)
	require.Equal(t, "XmrLocked", all[1].Type)

	got, ok := store.Get("a")
	require.True(t, ok)
	got.Content[0] = '['
	again, _ := store.Get("a")
	require.JSONEq(t, `{"x":1}`, string(again.Content))
}
