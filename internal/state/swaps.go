package state

import "github.com/atomicstack/swap-control/internal/swaps"

// SwapStore caches the last fetched swap history and its classification.
// The history is replaced wholesale on every fetch.
type SwapStore interface {
	Records() []swaps.Record
	SetRecords([]swaps.Record)
	Partition() swaps.Partition
	Loaded() bool
}

type swapStore struct {
	classifier *swaps.Classifier
	records    []swaps.Record
	partition  swaps.Partition
	loaded     bool
}

// NewSwapStore builds an empty store. A nil classifier uses the default
// setup states.
func NewSwapStore(classifier *swaps.Classifier) SwapStore {
	if classifier == nil {
		classifier = swaps.DefaultClassifier
	}
	return &swapStore{classifier: classifier}
}

func (s *swapStore) Records() []swaps.Record {
	return swaps.CloneAll(s.records)
}

func (s *swapStore) SetRecords(records []swaps.Record) {
	s.records = swaps.CloneAll(records)
	s.partition = s.classifier.Classify(s.records)
	s.loaded = true
}

func (s *swapStore) Partition() swaps.Partition {
	p := s.partition
	p.Resumable = swaps.CloneAll(p.Resumable)
	p.Punished = swaps.CloneAll(p.Punished)
	p.SetupIncomplete = swaps.CloneAll(p.SetupIncomplete)
	p.Completed = swaps.CloneAll(p.Completed)
	p.Rejected = append([]*swaps.InputError(nil), p.Rejected...)
	p.Unrecognized = append([]string(nil), p.Unrecognized...)
	return p
}

func (s *swapStore) Loaded() bool {
	return s.loaded
}
