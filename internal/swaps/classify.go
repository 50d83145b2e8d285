// Package swaps partitions the cached swap records for presentation.
//
// Classification is a pure function of the input slice. Each record lands in
// at most one bucket, checked in priority order: completed, punished,
// setup-incomplete, resumable. Records that are missing required attributes
// are reported in Rejected instead of aborting the whole pass.
package swaps

import (
	"errors"
	"fmt"
)

// ErrMissingID and friends describe why a record was rejected.
var (
	ErrMissingID    = errors.New("swap record has no id")
	ErrMissingState = errors.New("swap record has no state name")
	ErrDuplicateID  = errors.New("duplicate swap id")
)

// InputError reports a record excluded from classification.
type InputError struct {
	Index int
	ID    string
	Err   error
}

func (e *InputError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("swap record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("swap record %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Partition is the classifier's output. Buckets preserve input order.
type Partition struct {
	Resumable       []Record
	Punished        []Record
	SetupIncomplete []Record
	Completed       []Record

	// Rejected records appear in no bucket.
	Rejected []*InputError
	// Unrecognized holds ids of resumable records whose state name is not in
	// KnownStates. They stay resumable; the list only feeds diagnostics.
	Unrecognized []string
}

// ResumableCount is the number shown on the resume badge.
func (p Partition) ResumableCount() int {
	return len(p.Resumable)
}

// Total counts classified records, rejected ones excluded.
func (p Partition) Total() int {
	return len(p.Resumable) + len(p.Punished) + len(p.SetupIncomplete) + len(p.Completed)
}

// Classifier holds the set of state names treated as initial negotiation.
type Classifier struct {
	setup map[string]struct{}
	known map[string]struct{}
}

// NewClassifier builds a classifier. An empty setupStates uses
// DefaultSetupStates.
func NewClassifier(setupStates []string) *Classifier {
	if len(setupStates) == 0 {
		setupStates = DefaultSetupStates
	}
	c := &Classifier{
		setup: make(map[string]struct{}, len(setupStates)),
		known: make(map[string]struct{}, len(KnownStates)+len(setupStates)),
	}
	for _, s := range setupStates {
		c.setup[s] = struct{}{}
		c.known[s] = struct{}{}
	}
	for _, s := range KnownStates {
		c.known[s] = struct{}{}
	}
	return c
}

// DefaultClassifier uses DefaultSetupStates.
var DefaultClassifier = NewClassifier(nil)

// Classify partitions records with DefaultClassifier.
func Classify(records []Record) Partition {
	return DefaultClassifier.Classify(records)
}

// IsSetupState reports whether name is an initial-negotiation phase.
func (c *Classifier) IsSetupState(name string) bool {
	_, ok := c.setup[name]
	return ok
}

// Classify partitions records. It never mutates its input.
func (c *Classifier) Classify(records []Record) Partition {
	var p Partition
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if err := validate(rec, seen); err != nil {
			p.Rejected = append(p.Rejected, &InputError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		seen[rec.ID] = struct{}{}
		rec = rec.Clone()

		switch {
		case rec.CompletedAt != nil:
			p.Completed = append(p.Completed, rec)
		case rec.Punished:
			p.Punished = append(p.Punished, rec)
		case c.IsSetupState(rec.StateName):
			p.SetupIncomplete = append(p.SetupIncomplete, rec)
		default:
			p.Resumable = append(p.Resumable, rec)
			if _, ok := c.known[rec.StateName]; !ok {
				p.Unrecognized = append(p.Unrecognized, rec.ID)
			}
		}
	}
	return p
}

func validate(rec Record, seen map[string]struct{}) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	if rec.StateName == "" {
		return ErrMissingState
	}
	if _, dup := seen[rec.ID]; dup {
		return ErrDuplicateID
	}
	return nil
}
