package swaps

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the frontend's read-only copy of a daemon swap. The daemon owns
// it; the cache replaces whole records on every history fetch.
type Record struct {
	ID          string
	StateName   string
	PeerID      string
	StartedAt   time.Time
	CompletedAt *time.Time
	Punished    bool
	BtcAmount   decimal.Decimal
	XmrAmount   decimal.Decimal
}

// Completed reports whether the daemon marked the swap as finished.
func (r Record) Completed() bool {
	return r.CompletedAt != nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	dup := r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

// CloneAll deep-copies records.
func CloneAll(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	dup := make([]Record, len(records))
	for i, r := range records {
		dup[i] = r.Clone()
	}
	return dup
}

// State names reported by the daemon.
const (
	StateInitiated             = "Initiated"
	StateNegotiating           = "Negotiating"
	StateReceivedQuote         = "ReceivedQuote"
	StateWaitingForBtcDeposit  = "WaitingForBtcDeposit"
	StateSwapSetupCompleted    = "SwapSetupCompleted"
	StateStarted               = "Started"
	StateBtcLocked             = "BtcLocked"
	StateXmrLockProofReceived  = "XmrLockProofReceived"
	StateXmrLocked             = "XmrLocked"
	StateEncSigSent            = "EncSigSent"
	StateBtcRedeemed           = "BtcRedeemed"
	StateCancelTimelockExpired = "CancelTimelockExpired"
	StateBtcCancelled          = "BtcCancelled"
	StateBtcRefunded           = "BtcRefunded"
	StateBtcPunished           = "BtcPunished"
	StateXmrRedeemed           = "XmrRedeemed"
	StateSafelyAborted         = "SafelyAborted"
)

// DefaultSetupStates are the initial-negotiation phases: neither party has
// locked funds yet.
var DefaultSetupStates = []string{
	StateInitiated,
	StateNegotiating,
	StateReceivedQuote,
	StateWaitingForBtcDeposit,
	StateSwapSetupCompleted,
	StateStarted,
}

// KnownStates lists every state name this build understands.
var KnownStates = []string{
	StateInitiated,
	StateNegotiating,
	StateReceivedQuote,
	StateWaitingForBtcDeposit,
	StateSwapSetupCompleted,
	StateStarted,
	StateBtcLocked,
	StateXmrLockProofReceived,
	StateXmrLocked,
	StateEncSigSent,
	StateBtcRedeemed,
	StateCancelTimelockExpired,
	StateBtcCancelled,
	StateBtcRefunded,
	StateBtcPunished,
	StateXmrRedeemed,
	StateSafelyAborted,
}
