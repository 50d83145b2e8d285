package approval

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies what the daemon is asking the user to decide.
type Kind string

const (
	KindSelectMaker          Kind = "SelectMaker"
	KindConfirmSwapExecution Kind = "ConfirmSwapExecution"
	KindUnknown              Kind = "Unknown"
)

// ParseKind maps a wire tag onto a Kind.
func ParseKind(tag string) Kind {
	switch Kind(tag) {
	case KindSelectMaker, KindConfirmSwapExecution:
		return Kind(tag)
	default:
		return KindUnknown
	}
}

// Quote is a maker's offer. Price is BTC per XMR, quantities are in BTC.
type Quote struct {
	PeerID      string          `json:"peer_id"`
	Multiaddr   string          `json:"multiaddr"`
	Price       decimal.Decimal `json:"price"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
	MaxQuantity decimal.Decimal `json:"max_quantity"`
	Version     string          `json:"version"`
}

// SwapSummary is the payload of a ConfirmSwapExecution request.
type SwapSummary struct {
	SwapID        string          `json:"swap_id"`
	PeerID        string          `json:"peer_id"`
	BtcLockAmount decimal.Decimal `json:"btc_lock_amount"`
	BtcNetworkFee decimal.Decimal `json:"btc_network_fee"`
	XmrReceive    decimal.Decimal `json:"xmr_receive_amount"`
}

// Request is an approval prompt issued by the daemon.
type Request struct {
	ID         string
	Kind       Kind
	Quotes     []Quote
	Swap       *SwapSummary
	ReceivedAt time.Time
}

// Quote returns the quote offered by peerID, if any.
func (r Request) Quote(peerID string) (Quote, bool) {
	for _, q := range r.Quotes {
		if q.PeerID == peerID {
			return q, true
		}
	}
	return Quote{}, false
}

func (r Request) clone() Request {
	dup := r
	if len(r.Quotes) > 0 {
		dup.Quotes = make([]Quote, len(r.Quotes))
		copy(dup.Quotes, r.Quotes)
	}
	if r.Swap != nil {
		s := *r.Swap
		dup.Swap = &s
	}
	return dup
}

// Decision is the user's answer to a request.
type Decision struct {
	Accept bool   `json:"accept"`
	PeerID string `json:"peer_id,omitempty"`
}

// Accept approves a request. For SelectMaker requests peerID names the
// chosen quote; otherwise it is empty.
func Accept(peerID string) Decision {
	return Decision{Accept: true, PeerID: peerID}
}

// Reject declines a request.
func Reject() Decision {
	return Decision{}
}

func (d Decision) String() string {
	if !d.Accept {
		return "reject"
	}
	if d.PeerID != "" {
		return "accept:" + d.PeerID
	}
	return "accept"
}
