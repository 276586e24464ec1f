package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chinaecon/internal/capital"
	"chinaecon/internal/config"
	"chinaecon/internal/dataset"
	"chinaecon/internal/forecast"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState is the complete state of one pipeline run. The table has linear
// ownership: the executing step mutates it in place and the next step sees
// the result. Execution is strictly sequential, so the mutex only guards
// readers outside the run (the report server polling a live run).
type RunState struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Step states keyed by step ID, plus the execution order.
	Steps     map[string]*StepState `json:"steps"`
	StepOrder []string              `json:"step_order"`

	// Error if the run failed
	Error error `json:"error,omitempty"`

	cfg       *config.Config
	table     *dataset.Table
	baseline  capital.Baseline
	hasBase   bool
	records   []forecast.Record
	artifacts map[string]string
}

// NewRunState creates a new run state for the given configuration.
func NewRunState(cfg *config.Config) *RunState {
	return &RunState{
		ID:        uuid.NewString(),
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		artifacts: make(map[string]string),
		cfg:       cfg,
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
}

// Config returns the run configuration.
func (r *RunState) Config() *config.Config {
	return r.cfg
}

// SetStep records the state of a step and its position in the run order.
func (r *RunState) SetStep(s *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.Steps[s.ID]; !exists {
		r.StepOrder = append(r.StepOrder, s.ID)
	}
	r.Steps[s.ID] = s
}

// GetStep returns the state of a specific step.
func (r *RunState) GetStep(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Steps[id]
}

// Table returns the dataset flowing through the run.
func (r *RunState) Table() *dataset.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}

// SetTable installs the dataset. Called once by the fetch or load step.
func (r *RunState) SetTable(t *dataset.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = t
}

// SetBaseline records the capital baseline the estimator settled on.
func (r *RunState) SetBaseline(b capital.Baseline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseline = b
	r.hasBase = true
}

// Baseline returns the capital baseline; ok is false when no usable baseline
// year was found and the capital series is unavailable.
func (r *RunState) Baseline() (capital.Baseline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseline, r.hasBase
}

// AddRecords appends extrapolation audit records.
func (r *RunState) AddRecords(recs ...forecast.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recs...)
}

// Records returns a copy of the extrapolation audit trail.
func (r *RunState) Records() []forecast.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]forecast.Record(nil), r.records...)
}

// SetArtifact records the path of a written output file.
func (r *RunState) SetArtifact(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[name] = path
}

// Artifacts returns a copy of the artifact name to path map.
func (r *RunState) Artifacts() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.artifacts))
	for k, v := range r.artifacts {
		out[k] = v
	}
	return out
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// HasFailures returns true if any step has failed
func (r *RunState) HasFailures() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.Steps {
		if s.CurrentStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}
