// Package health reports the outcome of the backup workflows over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of one registered check. Workflow is set by checks
// backed by a Tracker.
type Check struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Workflow  *Snapshot `json:"workflow,omitempty"`
}

// CheckFunc produces a Check on demand.
type CheckFunc func(context.Context) Check

// Report is the body served on the health endpoint.
type Report struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Failing   []string         `json:"failing,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Checker aggregates named checks into a Report.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	now    func() time.Time
}

// NewChecker creates a checker with no registered checks.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		now:    time.Now,
	}
}

// Register adds or replaces the check stored under name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Report runs every check. The report is unhealthy when any check is, and
// Failing lists those checks by name.
func (c *Checker) Report(ctx context.Context) Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(c.checks)),
		Timestamp: c.now(),
	}
	for name, fn := range c.checks {
		check := fn(ctx)
		report.Checks[name] = check
		if check.Status != StatusHealthy {
			report.Status = StatusUnhealthy
			report.Failing = append(report.Failing, name)
		}
	}
	sort.Strings(report.Failing)
	return report
}

// ServeHTTP writes the Report as JSON with 503 when unhealthy. HEAD requests
// get the status code only.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := c.Report(r.Context())

	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(report)
}

// Live answers liveness probes while the process is serving.
func Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive\n"))
}
