package health

import (
	"context"
	"errors"
	"testing"
)

// fakeReadiness is a scriptable classifier readiness check.
type fakeReadiness struct {
	err   error
	calls int
}

func (f *fakeReadiness) Ready(context.Context) error {
	f.calls++
	return f.err
}

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakeReadiness{err: errors.New("down")})

	response := checker.Liveness(context.Background())

	// Liveness never consults dependencies.
	if response.Status != StatusHealthy {
		t.Errorf("expected healthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness_InProcessClassifier(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil)

	response := checker.Readiness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("expected healthy status, got %s", response.Status)
	}

	check, ok := response.Checks["classifier"]
	if !ok {
		t.Fatal("expected classifier check to be present")
	}
	if check.Status != StatusHealthy {
		t.Errorf("expected classifier check healthy, got %s", check.Status)
	}
}

func TestChecker_Readiness_ClassifierDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakeReadiness{err: errors.New("model server unreachable")})

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy status, got %s", response.Status)
	}

	check := response.Checks["classifier"]
	if check.Status != StatusUnhealthy {
		t.Errorf("expected classifier check unhealthy, got %s", check.Status)
	}
	if check.Message == "" {
		t.Error("expected the failure reason in the check message")
	}
}

func TestChecker_Readiness_Cached(t *testing.T) {
	t.Parallel()
	fake := &fakeReadiness{}
	checker := NewChecker(fake)

	checker.Readiness(context.Background())
	checker.Readiness(context.Background())
	checker.Readiness(context.Background())

	if fake.calls != 1 {
		t.Errorf("expected 1 backend call with caching, got %d", fake.calls)
	}
}

func TestChecker_SetShuttingDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil)

	if !checker.Readiness(context.Background()).IsHealthy() {
		t.Fatal("expected ready before shutdown")
	}

	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())
	if response.IsHealthy() {
		t.Error("expected unhealthy after shutdown, cache included")
	}
	if _, ok := response.Checks["shutdown"]; !ok {
		t.Error("expected shutdown check to be present")
	}

	// Liveness stays healthy so the container is not restarted mid-drain.
	if checker.Liveness(context.Background()).Status != StatusHealthy {
		t.Error("expected liveness to stay healthy during shutdown")
	}
}

func TestResponse_IsHealthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"healthy", StatusHealthy, true},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Status: tt.status}
			if r.IsHealthy() != tt.expected {
				t.Errorf("IsHealthy() = %v, want %v", r.IsHealthy(), tt.expected)
			}
		})
	}
}
