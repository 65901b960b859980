package domain

import (
	"fmt"
	"time"
)

// DefaultMaxSteps is the step budget applied when a run does not ask for one.
const DefaultMaxSteps = 50

// RunStatus defines where a run is in its lifecycle.
type RunStatus string

const (
	StatusRunning           RunStatus = "running"
	StatusCompleted         RunStatus = "completed"
	StatusFailed            RunStatus = "failed"
	StatusStepLimitExceeded RunStatus = "step_limit_exceeded"
)

// IsTerminal reports whether no further transition can leave the status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStepLimitExceeded:
		return true
	}
	return false
}

// ParseRunStatus converts a status name such as "failed" into a RunStatus.
func ParseRunStatus(name string) (RunStatus, error) {
	switch s := RunStatus(name); s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusStepLimitExceeded:
		return s, nil
	}
	return "", fmt.Errorf("unknown run status %q", name)
}

// StepEntry is one line of the append-only run log.
type StepEntry struct {
	Index     int           `json:"step_index"`
	Node      string        `json:"node"`
	Tool      string        `json:"tool"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`

	// State is the snapshot after the merge. Empty when the tool failed.
	State State `json:"state,omitempty"`

	// Delta holds the keys changed by this step.
	Delta State `json:"delta,omitempty"`

	// Next is the node chosen after this step ("" means the run ends here).
	Next string `json:"next,omitempty"`

	// Error describes why the step failed, if it did.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the entry records a failure.
func (e StepEntry) Failed() bool {
	return e.Error != ""
}

// Run is the record of one execution of a graph.
// It is mutated only by the engine while Status is running.
type Run struct {
	ID          string      `json:"id"`
	GraphID     string      `json:"graph_id"`
	Status      RunStatus   `json:"status"`
	CurrentNode string      `json:"current_node,omitempty"`
	State       State       `json:"state"`
	Log         []StepEntry `json:"log"`
	Error       string      `json:"error,omitempty"`
	MaxSteps    int         `json:"max_steps"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

// NewRun creates a running record positioned at startNode.
// The initial state is deep-copied; maxSteps <= 0 selects DefaultMaxSteps.
func NewRun(id, graphID, startNode string, initial State, maxSteps int) *Run {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Run{
		ID:          id,
		GraphID:     graphID,
		Status:      StatusRunning,
		CurrentNode: startNode,
		State:       initial.Clone(),
		Log:         []StepEntry{},
		MaxSteps:    maxSteps,
		StartedAt:   time.Now().UTC(),
	}
}

// Steps returns the number of node executions recorded so far.
func (r *Run) Steps() int {
	return len(r.Log)
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.State = r.State.Clone()
	out.Log = make([]StepEntry, len(r.Log))
	for i, e := range r.Log {
		if e.State != nil {
			e.State = e.State.Clone()
		}
		if e.Delta != nil {
			e.Delta = e.Delta.Clone()
		}
		out.Log[i] = e
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}

// Visited returns the node names in execution order.
func (r *Run) Visited() []string {
	out := make([]string, 0, len(r.Log))
	for _, e := range r.Log {
		out = append(out, e.Node)
	}
	return out
}
