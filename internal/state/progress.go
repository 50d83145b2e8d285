package state

import (
	"sort"

	"github.com/atomicstack/swap-control/internal/backend"
)

// ProgressStore keeps the latest progress step per swap.
type ProgressStore interface {
	Set(backend.SwapProgress)
	Get(swapID string) (backend.SwapProgress, bool)
	All() []backend.SwapProgress
}

type progressStore struct {
	latest map[string]backend.SwapProgress
}

func NewProgressStore() ProgressStore {
	return &progressStore{latest: make(map[string]backend.SwapProgress)}
}

func (s *progressStore) Set(p backend.SwapProgress) {
	if p.SwapID == "" {
		return
	}
	s.latest[p.SwapID] = cloneProgress(p)
}

func (s *progressStore) Get(swapID string) (backend.SwapProgress, bool) {
	p, ok := s.latest[swapID]
	if !ok {
		return backend.SwapProgress{}, false
	}
	return cloneProgress(p), true
}

// All returns every swap's latest step ordered by swap id.
func (s *progressStore) All() []backend.SwapProgress {
	if len(s.latest) == 0 {
		return nil
	}
	out := make([]backend.SwapProgress, 0, len(s.latest))
	for _, p := range s.latest {
		out = append(out, cloneProgress(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SwapID < out[j].SwapID })
	return out
}

func cloneProgress(p backend.SwapProgress) backend.SwapProgress {
	if p.Content != nil {
		p.Content = append(p.Content[:0:0], p.Content...)
	}
	return p
}
