// Package daemon is the frontend's IPC client for the swap daemon.
//
// The transport is JSON-RPC 2.0 over a websocket. Calls are correlated by a
// random request id; anything the daemon sends without an id is a
// notification and is decoded into a backend.Event on Events. Every new
// connection pulls the context status once; after that the daemon pushes
// changes. A dropped connection fails every in-flight call with a
// TransportError, reports the context as initializing and reconnects with
// exponential backoff.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/sourcegraph/conc"

	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/tracker"
)

const (
	defaultCallTimeout  = 30 * time.Second
	defaultPingInterval = 15 * time.Second
	defaultReconnectMax = 30 * time.Second
	defaultMaxRetries   = 3
	handshakeTimeout    = 10 * time.Second
	readLimit           = 4 << 20
)

// Config controls the client's transport behaviour.
type Config struct {
	URL          string
	CallTimeout  time.Duration
	MaxRetries   int
	PingInterval time.Duration
	ReconnectMax time.Duration
	Header       http.Header
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		URL:          "ws://127.0.0.1:9944",
		CallTimeout:  defaultCallTimeout,
		MaxRetries:   defaultMaxRetries,
		PingInterval: defaultPingInterval,
		ReconnectMax: defaultReconnectMax,
	}
}

// Client talks to the daemon. It is safe for concurrent use.
type Client struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	dialer *websocket.Dialer
	now    func() time.Time

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan rpcMessage

	breaker *gobreaker.CircuitBreaker
	events  chan backend.Event

	// statusPushes counts context status notifications, so a pulled status
	// never overrides a newer push.
	statusPushes atomic.Uint64

	wg        conc.WaitGroup
	closeOnce sync.Once
}

// Dial connects to the daemon and starts the read and reconnect loops. The
// first connection must succeed; later drops are retried in the background
// until Close.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("daemon url is required")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = defaultReconnectMax
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:     cfg,
		ctx:     runCtx,
		cancel:  cancel,
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		now:     time.Now,
		pending: make(map[string]chan rpcMessage),
		events:  make(chan backend.Event),
	}
	c.breaker = newCircuitBreaker()

	conn, err := c.dial(ctx)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "dial", Err: err}
	}
	c.conn = conn
	c.wg.Go(func() { c.run(conn) })
	return c, nil
}

func newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "daemon",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			events.Daemon.Breaker(from.String(), to.String())
			if to == gobreaker.StateOpen {
				logging.Logger().Warn("daemon seems down, stop allowing requests")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				logging.Logger().Info("daemon seems ok, restart allowing requests")
			}
		},
	})
}

// Events returns the channel of decoded notifications. It is closed by Close.
func (c *Client) Events() <-chan backend.Event {
	return c.events
}

// Close shuts the connection down and fails every in-flight call.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}

		c.wg.Wait()
		c.failPending()
		close(c.events)
	})
	return nil
}

// CheckBalance asks the daemon for the wallet balance.
func (c *Client) CheckBalance(ctx context.Context) (Balance, error) {
	var bal Balance
	if err := c.call(ctx, MethodGetBalance, nil, &bal); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// FetchSwapHistory returns every swap the daemon knows about.
func (c *Client) FetchSwapHistory(ctx context.Context) ([]swaps.Record, error) {
	var infos []swapInfo
	if err := c.call(ctx, MethodGetSwapInfosAll, nil, &infos); err != nil {
		return nil, err
	}
	records := make([]swaps.Record, 0, len(infos))
	for _, info := range infos {
		records = append(records, info.record())
	}
	return records, nil
}

// ResolveApproval sends the user's decision for a pending request. It is a
// notification: the daemon does not acknowledge it.
func (c *Client) ResolveApproval(ctx context.Context, requestID string, decision approval.Decision) error {
	return c.notify(ctx, MethodResolveApproval, resolveParams{RequestID: requestID, Decision: decision})
}

// ResumeSwap asks the daemon to continue a suspended swap.
func (c *Client) ResumeSwap(ctx context.Context, swapID string) error {
	return c.call(ctx, MethodResumeSwap, swapIDParams{SwapID: swapID}, nil)
}

// SuspendCurrentSwap asks the daemon to pause the running swap.
func (c *Client) SuspendCurrentSwap(ctx context.Context) error {
	return c.call(ctx, MethodSuspendCurrentSwap, nil, nil)
}

// ContextStatus asks the daemon for its current context status.
func (c *Client) ContextStatus(ctx context.Context) (tracker.Status, error) {
	var p contextStatusParams
	if err := c.call(ctx, MethodGetContextStatus, nil, &p); err != nil {
		return tracker.Status{}, err
	}
	return tracker.ParseStatus(p.Status, p.Reason), nil
}

// BuyXmr starts a swap and returns its id. The daemon follows up with
// approval requests and progress notifications for it.
func (c *Client) BuyXmr(ctx context.Context, req BuyRequest) (string, error) {
	if req.MoneroReceiveAddress == "" {
		return "", errors.New("monero receive address is required")
	}
	var res buyResult
	if err := c.call(ctx, MethodBuyXmr, req, &res); err != nil {
		return "", err
	}
	return res.SwapID, nil
}

// WithdrawBtc sends bitcoin from the internal wallet to req.Address.
func (c *Client) WithdrawBtc(ctx context.Context, req WithdrawRequest) (Withdrawal, error) {
	if req.Address == "" {
		return Withdrawal{}, errors.New("withdraw address is required")
	}
	params, err := req.params()
	if err != nil {
		return Withdrawal{}, err
	}
	var res Withdrawal
	if err := c.call(ctx, MethodWithdrawBtc, params, &res); err != nil {
		return Withdrawal{}, err
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	start := c.now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, params, result)
	})
	events.Daemon.Call(method, c.now().Sub(start), err)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	return nil
}

func (c *Client) notify(ctx context.Context, method string, params interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	start := c.now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.write(ctx, rpcRequest{JSONRPC: jsonRPCVersion, Method: method, Params: params})
	})
	events.Daemon.Call(method, c.now().Sub(start), err)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params, result interface{}) error {
	id := uuid.NewString()
	ch := make(chan rpcMessage, 1)

	c.pendingMu.Lock()
	if c.ctx.Err() != nil {
		c.pendingMu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer c.forget(id)

	if err := c.write(ctx, rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return ErrNotConnected
		}
		if msg.Error != nil {
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// write sends one frame, retrying while the connection is being
// re-established.
func (c *Client) write(ctx context.Context, msg rpcRequest) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Method, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond

	op := func() (struct{}, error) {
		if c.ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ErrClosed)
		}
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return struct{}{}, ErrNotConnected
		}

		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		deadline, _ := ctx.Deadline()
		_ = conn.SetWriteDeadline(deadline)
		return struct{}{}, conn.WriteMessage(websocket.TextMessage, data)
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Logger().WithFields(logrus.Fields{
				"method": msg.Method,
				"retry":  next,
			}).WithError(err).Debug("daemon write failed")
		}),
	)
	return err
}

func (c *Client) forget(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// failPending unblocks every in-flight call with ErrNotConnected.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// run serves conn and, whenever it drops, reconnects until Close.
func (c *Client) run(conn *websocket.Conn) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = c.cfg.ReconnectMax

	for {
		err := c.serve(conn)

		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		_ = conn.Close()
		c.failPending()

		if c.ctx.Err() != nil {
			return
		}

		logging.Warn(err, "daemon connection lost")
		c.emit(backend.Event{Kind: backend.KindTransportError, Err: &TransportError{Op: "read", Err: err}})
		c.emit(backend.Event{Kind: backend.KindContextStatus, Data: tracker.Initializing})

		next, ok := c.reconnect(b)
		if !ok {
			return
		}
		conn = next
	}
}

func (c *Client) reconnect(b *backoff.ExponentialBackOff) (*websocket.Conn, bool) {
	for attempt := 1; ; attempt++ {
		sleep := b.NextBackOff()
		if sleep == backoff.Stop {
			sleep = c.cfg.ReconnectMax
		}
		select {
		case <-c.ctx.Done():
			return nil, false
		case <-time.After(sleep):
		}

		conn, err := c.dial(c.ctx)
		events.Context.Reconnect(attempt, err)
		if err != nil {
			continue
		}

		c.connMu.Lock()
		if c.ctx.Err() != nil {
			c.connMu.Unlock()
			_ = conn.Close()
			return nil, false
		}
		c.conn = conn
		c.connMu.Unlock()
		b.Reset()
		logging.Logger().WithField("attempt", attempt).Info("daemon reconnected")
		return conn, true
	}
}

// serve reads frames until the connection fails.
func (c *Client) serve(conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(c.ctx)
	var wg conc.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if c.cfg.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * c.cfg.PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * c.cfg.PingInterval))
		})
		wg.Go(func() { c.pingLoop(connCtx, conn) })
	}
	wg.Go(func() { c.syncStatus(connCtx) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

// syncStatus pulls the context status once a connection is up. A daemon
// that does not know the call only pushes changes, which is fine.
func (c *Client) syncStatus(ctx context.Context) {
	pushes := c.statusPushes.Load()
	status, err := c.ContextStatus(ctx)
	if err != nil {
		var rpcErr *RPCError
		switch {
		case errors.As(err, &rpcErr):
			logging.Logger().WithError(err).Debug("daemon does not report context status")
		case ctx.Err() == nil:
			logging.Warn(err, "context status pull failed")
		}
		return
	}
	if c.statusPushes.Load() != pushes {
		return
	}
	c.emit(backend.Event{Kind: backend.KindContextStatus, Data: status})
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.PingInterval)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.emit(backend.Event{Kind: backend.KindTransportError, Err: &TransportError{Op: "decode frame", Err: err}})
		return
	}

	if msg.Method == "" {
		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			logging.Logger().WithField("id", msg.ID).Debug("daemon response for unknown call")
			return
		}
		ch <- msg
		return
	}

	events.Daemon.Notification(msg.Method)
	evt, handled, err := decodeNotification(msg.Method, msg.Params, c.now())
	if err != nil {
		c.emit(backend.Event{Kind: backend.KindTransportError, Err: &TransportError{Op: msg.Method, Err: err}})
		return
	}
	if !handled {
		logging.Logger().WithField("method", msg.Method).Debug("ignoring daemon notification")
		return
	}
	if evt.Kind == backend.KindContextStatus {
		c.statusPushes.Add(1)
	}
	c.emit(evt)
}

// emit blocks until the event is consumed or the client closes.
func (c *Client) emit(evt backend.Event) {
	select {
	case c.events <- evt:
	case <-c.ctx.Done():
	}
}
