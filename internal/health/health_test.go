package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTracker_Lifecycle(t *testing.T) {
	tracker := NewTracker()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	if s := tracker.Snapshot(); s.State != StateIdle {
		t.Errorf("initial state = %v, want %v", s.State, StateIdle)
	}

	tracker.Start("backup")
	tracker.Stage("dump")

	s := tracker.Snapshot()
	if s.Workflow != "backup" || s.Stage != "dump" || s.State != StateRunning {
		t.Errorf("running snapshot = %+v", s)
	}
	if !s.StartedAt.Equal(fixed) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt, fixed)
	}

	tracker.Finish(errors.New("pg_dump failed"))
	s = tracker.Snapshot()
	if s.State != StateFailed || s.Error != "pg_dump failed" {
		t.Errorf("failed snapshot = %+v", s)
	}

	tracker.Start("upload")
	tracker.Finish(nil)
	s = tracker.Snapshot()
	if s.State != StateSucceeded || s.Error != "" || s.Stage != "" {
		t.Errorf("succeeded snapshot = %+v", s)
	}
}

func TestTracker_Check(t *testing.T) {
	tracker := NewTracker()

	if c := tracker.Check(context.Background()); c.Status != StatusHealthy || c.Workflow.State != StateIdle {
		t.Errorf("idle tracker check = %+v, want healthy idle", c)
	}

	tracker.Start("delete")
	tracker.Finish(errors.New("access denied"))

	c := tracker.Check(context.Background())
	if c.Status != StatusUnhealthy {
		t.Errorf("failed tracker status = %v, want unhealthy", c.Status)
	}
	if c.Workflow == nil || c.Workflow.Workflow != "delete" || c.Workflow.Error != "access denied" {
		t.Errorf("workflow = %+v", c.Workflow)
	}
}

func TestChecker_Report(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	checker := NewChecker()
	checker.now = func() time.Time { return fixed }

	checker.Register("b-unhealthy", func(ctx context.Context) Check {
		return Check{Status: StatusUnhealthy, Timestamp: fixed}
	})
	checker.Register("a-unhealthy", func(ctx context.Context) Check {
		return Check{Status: StatusUnhealthy, Timestamp: fixed}
	})
	checker.Register("healthy", func(ctx context.Context) Check {
		return Check{Status: StatusHealthy, Timestamp: fixed}
	})

	report := checker.Report(context.Background())

	if len(report.Checks) != 3 {
		t.Errorf("Report() has %d checks, want 3", len(report.Checks))
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Report() status = %v, want unhealthy", report.Status)
	}
	if len(report.Failing) != 2 || report.Failing[0] != "a-unhealthy" || report.Failing[1] != "b-unhealthy" {
		t.Errorf("Report() failing = %v", report.Failing)
	}
	if !report.Timestamp.Equal(fixed) {
		t.Errorf("Report() timestamp = %v, want %v", report.Timestamp, fixed)
	}

	if r := NewChecker().Report(context.Background()); r.Status != StatusHealthy || r.Failing != nil {
		t.Errorf("empty Report() = %+v, want healthy", r)
	}
}

func TestChecker_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		finishErr  error
		wantStatus int
		wantHealth Status
	}{
		{
			name:       "succeeded workflow",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHealth: StatusHealthy,
		},
		{
			name:       "failed workflow",
			method:     http.MethodGet,
			finishErr:  errors.New("upload failed"),
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: StatusUnhealthy,
		},
		{
			name:       "head on failed workflow",
			method:     http.MethodHead,
			finishErr:  errors.New("upload failed"),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker()
			tracker.Start("upload")
			tracker.Finish(tt.finishErr)

			checker := NewChecker()
			checker.Register("workflow", tracker.Check)

			req := httptest.NewRequest(tt.method, "/health", nil)
			rr := httptest.NewRecorder()
			checker.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.wantStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", status, tt.wantStatus)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			if tt.method == http.MethodHead {
				if rr.Body.Len() != 0 {
					t.Errorf("HEAD body = %q, want empty", rr.Body.String())
				}
				return
			}

			var report Report
			if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if report.Status != tt.wantHealth {
				t.Errorf("overall status = %v, want %v", report.Status, tt.wantHealth)
			}
			check, ok := report.Checks["workflow"]
			if !ok || check.Workflow == nil {
				t.Fatalf("workflow check missing from response: %+v", report.Checks)
			}
			if check.Workflow.Workflow != "upload" {
				t.Errorf("workflow name = %q, want upload", check.Workflow.Workflow)
			}
			if tt.finishErr != nil && check.Workflow.Error != tt.finishErr.Error() {
				t.Errorf("workflow error = %q, want %q", check.Workflow.Error, tt.finishErr)
			}
		})
	}
}

func TestSnapshotOmitsZeroTimes(t *testing.T) {
	data, err := json.Marshal(NewTracker().Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got := string(data); got != `{"state":"idle"}` {
		t.Errorf("idle snapshot JSON = %s", got)
	}
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	Live(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	expected := "alive\n"
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v",
			rr.Body.String(), expected)
	}
}
