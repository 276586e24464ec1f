package http

import (
	"sync"

	"chinaecon/internal/pipeline"
)

// RunStore holds the most recent pipeline run for the handlers to serve.
// The server process installs the run once it finishes; until then the API
// answers 404.
type RunStore struct {
	mu    sync.RWMutex
	state *pipeline.RunState
}

// NewRunStore creates an empty store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Set installs a run state as the latest.
func (s *RunStore) Set(state *pipeline.RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Latest returns the installed run state, if any.
func (s *RunStore) Latest() (*pipeline.RunState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.state != nil
}
