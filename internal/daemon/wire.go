package daemon

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/tracker"
)

const jsonRPCVersion = "2.0"

// Outbound methods.
const (
	MethodGetBalance         = "get_balance"
	MethodGetContextStatus   = "get_context_status"
	MethodGetSwapInfosAll    = "get_swap_infos_all"
	MethodResolveApproval    = "resolve_approval"
	MethodResumeSwap         = "resume_swap"
	MethodSuspendCurrentSwap = "suspend_current_swap"
	MethodBuyXmr             = "buy_xmr"
	MethodWithdrawBtc        = "withdraw_btc"
)

// Inbound notifications.
const (
	NotifyContextStatus     = "context_status_changed"
	NotifyApprovalRequested = "approval_requested"
	NotifyApprovalWithdrawn = "approval_withdrawn"
	NotifySwapProgress      = "swap_progress_update"
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcMessage is either a response (ID set) or a notification (Method set).
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Balance is the BTC wallet balance reported by the daemon.
type Balance struct {
	Sats uint64 `json:"balance"`
}

var satsPerBTC = decimal.New(1, 8)

// BTC converts the balance to bitcoin.
func (b Balance) BTC() decimal.Decimal {
	return decimal.NewFromInt(int64(b.Sats)).Div(satsPerBTC)
}

type swapInfo struct {
	SwapID    string `json:"swap_id"`
	StateName string `json:"state_name"`
	Seller    struct {
		PeerID string `json:"peer_id"`
	} `json:"seller"`
	StartDate   time.Time       `json:"start_date"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Punished    bool            `json:"punished"`
	BtcAmount   decimal.Decimal `json:"btc_amount"`
	XmrAmount   decimal.Decimal `json:"xmr_amount"`
}

func (s swapInfo) record() swaps.Record {
	return swaps.Record{
		ID:          s.SwapID,
		StateName:   s.StateName,
		PeerID:      s.Seller.PeerID,
		StartedAt:   s.StartDate,
		CompletedAt: s.CompletedAt,
		Punished:    s.Punished,
		BtcAmount:   s.BtcAmount,
		XmrAmount:   s.XmrAmount,
	}
}

type resolveParams struct {
	RequestID string            `json:"request_id"`
	Decision  approval.Decision `json:"decision"`
}

type swapIDParams struct {
	SwapID string `json:"swap_id"`
}

// BuyRequest starts a new swap. The change address is optional; the daemon
// uses its internal wallet when it is empty.
type BuyRequest struct {
	MoneroReceiveAddress string `json:"monero_receive_address"`
	BitcoinChangeAddress string `json:"bitcoin_change_address,omitempty"`
}

type buyResult struct {
	SwapID string `json:"swap_id"`
}

// WithdrawRequest sends bitcoin out of the internal wallet. A nil Amount
// sweeps the whole balance.
type WithdrawRequest struct {
	Address string
	Amount  *decimal.Decimal
}

type withdrawParams struct {
	Address string  `json:"address"`
	Amount  *uint64 `json:"amount,omitempty"`
}

// Withdrawal is the daemon's receipt for a withdraw call.
type Withdrawal struct {
	TxID string `json:"txid"`
	Sats uint64 `json:"amount"`
}

// BTC converts the withdrawn amount to bitcoin.
func (w Withdrawal) BTC() decimal.Decimal {
	return decimal.NewFromInt(int64(w.Sats)).Div(satsPerBTC)
}

func (r WithdrawRequest) params() (withdrawParams, error) {
	p := withdrawParams{Address: r.Address}
	if r.Amount == nil {
		return p, nil
	}
	sats := r.Amount.Mul(satsPerBTC)
	if !sats.IsInteger() {
		return p, fmt.Errorf("amount %s has more than 8 decimal places", r.Amount)
	}
	if !sats.IsPositive() {
		return p, fmt.Errorf("amount %s must be positive", r.Amount)
	}
	n := uint64(sats.IntPart())
	p.Amount = &n
	return p, nil
}

type contextStatusParams struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type approvalRequestedParams struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	Payload   struct {
		Quotes []approval.Quote      `json:"quotes,omitempty"`
		Swap   *approval.SwapSummary `json:"swap,omitempty"`
	} `json:"payload"`
}

type approvalWithdrawnParams struct {
	RequestID string `json:"request_id"`
}

type swapProgressParams struct {
	SwapID string `json:"swap_id"`
	Event  struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content,omitempty"`
	} `json:"event"`
}

// decodeNotification turns a daemon notification into a typed event. The
// boolean is false for methods this build does not handle.
func decodeNotification(method string, params json.RawMessage, now time.Time) (backend.Event, bool, error) {
	switch method {
	case NotifyContextStatus:
		var p contextStatusParams
		if err := json.Unmarshal(params, &p); err != nil {
			return backend.Event{}, true, fmt.Errorf("decode %s: %w", method, err)
		}
		return backend.Event{Kind: backend.KindContextStatus, Data: tracker.ParseStatus(p.Status, p.Reason)}, true, nil
	case NotifyApprovalRequested:
		var p approvalRequestedParams
		if err := json.Unmarshal(params, &p); err != nil {
			return backend.Event{}, true, fmt.Errorf("decode %s: %w", method, err)
		}
		if p.RequestID == "" {
			return backend.Event{}, true, fmt.Errorf("decode %s: missing request_id", method)
		}
		req := approval.Request{
			ID:         p.RequestID,
			Kind:       approval.ParseKind(p.Kind),
			Quotes:     p.Payload.Quotes,
			Swap:       p.Payload.Swap,
			ReceivedAt: now,
		}
		return backend.Event{Kind: backend.KindApprovalRequested, Data: req}, true, nil
	case NotifyApprovalWithdrawn:
		var p approvalWithdrawnParams
		if err := json.Unmarshal(params, &p); err != nil {
			return backend.Event{}, true, fmt.Errorf("decode %s: %w", method, err)
		}
		return backend.Event{Kind: backend.KindApprovalWithdrawn, Data: backend.Withdrawal{RequestID: p.RequestID}}, true, nil
	case NotifySwapProgress:
		var p swapProgressParams
		if err := json.Unmarshal(params, &p); err != nil {
			return backend.Event{}, true, fmt.Errorf("decode %s: %w", method, err)
		}
		progress := backend.SwapProgress{
			SwapID:     p.SwapID,
			Type:       p.Event.Type,
			Content:    p.Event.Content,
			ReceivedAt: now,
		}
		return backend.Event{Kind: backend.KindSwapProgress, Data: progress}, true, nil
	default:
		return backend.Event{}, false, nil
	}
}
