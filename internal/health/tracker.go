package health

import (
	"context"
	"sync"
	"time"
)

// Workflow states reported by the Tracker.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Snapshot is the tracked state of the current or last workflow.
type Snapshot struct {
	Workflow  string    `json:"workflow,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Tracker records workflow progress for the health endpoint.
type Tracker struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{
		snapshot: Snapshot{State: StateIdle},
		now:      time.Now,
	}
}

// Start marks workflow as running.
func (t *Tracker) Start(workflow string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.snapshot = Snapshot{
		Workflow:  workflow,
		State:     StateRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Stage records the stage the running workflow entered.
func (t *Tracker) Stage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.Stage = stage
	t.snapshot.UpdatedAt = t.now()
}

// Finish records the workflow outcome.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.UpdatedAt = t.now()
	if err != nil {
		t.snapshot.State = StateFailed
		t.snapshot.Error = err.Error()
		return
	}
	t.snapshot.State = StateSucceeded
	t.snapshot.Error = ""
}

// Snapshot returns a copy of the tracked state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Check reports the tracked workflow. Only a failed workflow is unhealthy, so
// an idle or running process stays ready.
func (t *Tracker) Check(ctx context.Context) Check {
	s := t.Snapshot()

	status := StatusHealthy
	if s.State == StateFailed {
		status = StatusUnhealthy
	}
	return Check{
		Status:    status,
		Timestamp: t.now(),
		Workflow:  &s,
	}
}
