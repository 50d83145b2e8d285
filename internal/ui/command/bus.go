package command

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/swap-control/internal/logging/events"
)

// Action performs one daemon-facing operation and returns a short
// description of what happened.
type Action func(ctx context.Context) (string, error)

// Request encapsulates an action invocation.
type Request struct {
	ID     string
	Label  string
	Action Action
}

// Result is delivered to the model once an action completes.
type Result struct {
	ID    string
	Label string
	Info  string
	Err   error
}

// Bus coordinates the execution of user actions.
type Bus struct {
	timeout time.Duration
}

// New initialises a command bus. A zero timeout leaves actions to the
// callee's own deadline.
func New(timeout time.Duration) *Bus {
	return &Bus{timeout: timeout}
}

// Execute wraps an action into a Bubble Tea command while emitting trace logs.
func (b *Bus) Execute(req Request) tea.Cmd {
	events.Command.Queue(req.ID, req.Label)
	return func() tea.Msg {
		if req.Action == nil {
			events.Command.Skip(req.ID, req.Label)
			return nil
		}
		ctx := context.Background()
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		info, err := req.Action(ctx)
		if err == nil && info == "" {
			events.Command.NoOp(req.ID, req.Label)
		}
		res := Result{ID: req.ID, Label: req.Label, Info: info, Err: err}
		events.Command.Result(req.ID, req.Label, fmt.Sprintf("%T", res))
		return res
	}
}
