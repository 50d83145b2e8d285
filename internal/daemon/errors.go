package daemon

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("daemon not connected")
	ErrClosed       = errors.New("daemon client closed")
	ErrTimeout      = errors.New("daemon call timed out")
)

// TransportError wraps any failure of an IPC call: a dropped connection, a
// timeout, an open circuit breaker or an error reported by the daemon. The UI
// shows it as a dismissible notice.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err carries a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RPCError is an error object returned by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}
