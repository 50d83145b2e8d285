package backend

import (
	"time"

	json "github.com/goccy/go-json"
)

// Kind represents the type of data emitted by the daemon.
type Kind int

const (
	KindContextStatus Kind = iota
	KindApprovalRequested
	KindApprovalWithdrawn
	KindSwapProgress
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindContextStatus:
		return "context-status"
	case KindApprovalRequested:
		return "approval-requested"
	case KindApprovalWithdrawn:
		return "approval-withdrawn"
	case KindSwapProgress:
		return "swap-progress"
	case KindTransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Event conveys one inbound notification or a transport failure. Data holds
// a tracker.Status, an approval.Request, a Withdrawal or a SwapProgress
// depending on Kind.
type Event struct {
	Kind Kind
	Data interface{}
	Err  error
}

// Withdrawal tells the frontend the daemon stopped waiting on a request.
type Withdrawal struct {
	RequestID string
}

// SwapProgress is the latest protocol step reported for a swap.
type SwapProgress struct {
	SwapID     string
	Type       string
	Content    json.RawMessage
	ReceivedAt time.Time
}

var terminalProgress = map[string]struct{}{
	"BtcRedeemed":               {},
	"XmrRedeemInMempool":        {},
	"BtcRefunded":               {},
	"BtcPunished":               {},
	"ProcessExited":             {},
	"CooperativeRedeemRejected": {},
}

// Terminal reports whether the step ends the swap's active phase, after
// which the cached history is stale.
func (p SwapProgress) Terminal() bool {
	_, ok := terminalProgress[p.Type]
	return ok
}
