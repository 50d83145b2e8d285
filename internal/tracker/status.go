package tracker

import "fmt"

// Phase is the tag of a backend context status.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAvailable
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseAvailable:
		return "available"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is the connectivity/initialisation state of the backend daemon.
// Reason is only meaningful for PhaseFailed.
type Status struct {
	Phase  Phase
	Reason string
}

var (
	Uninitialized = Status{Phase: PhaseUninitialized}
	Initializing  = Status{Phase: PhaseInitializing}
	Available     = Status{Phase: PhaseAvailable}
)

// Failed builds a failed status carrying the backend's reason.
func Failed(reason string) Status {
	return Status{Phase: PhaseFailed, Reason: reason}
}

// IsAvailable reports whether the backend can serve requests.
func (s Status) IsAvailable() bool {
	return s.Phase == PhaseAvailable
}

func (s Status) String() string {
	if s.Phase == PhaseFailed && s.Reason != "" {
		return fmt.Sprintf("failed: %s", s.Reason)
	}
	return s.Phase.String()
}

// ParseStatus maps the daemon's wire tag onto a Status. Unknown tags are
// reported as failures so the UI renders them instead of guessing.
func ParseStatus(tag, reason string) Status {
	switch tag {
	case "Uninitialized", "uninitialized":
		return Uninitialized
	case "Initializing", "initializing":
		return Initializing
	case "Available", "available":
		return Available
	case "Failed", "failed":
		return Failed(reason)
	default:
		if reason == "" {
			reason = fmt.Sprintf("unknown context status %q", tag)
		}
		return Failed(reason)
	}
}
