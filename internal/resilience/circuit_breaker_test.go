package resilience

import (
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

func testConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	cb := New[string]("disabled", cfg, testLogger)
	if cb != nil {
		t.Fatal("expected nil breaker when disabled")
	}

	got, err := cb.Execute(func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("Execute() = %q, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("nil breaker must report healthy")
	}
	if cb.Stats()["enabled"] != false {
		t.Error("nil breaker stats should report disabled")
	}
}

func TestBreakerTripsAfterFailures(t *testing.T) {
	cb := New[int]("generation", testConfig(), testLogger)
	failing := func() (int, error) { return 0, stderrors.New("backend down") }

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(failing); err == nil {
			t.Fatal("expected failure")
		}
	}

	if cb.IsHealthy() {
		t.Fatal("breaker should be open after reaching the failure threshold")
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("open breaker must not invoke the call")
	}
	if !IsOpenError(err) {
		t.Errorf("expected open-state error, got %v", err)
	}
}

func TestBreakerStats(t *testing.T) {
	cb := New[int]("stats", testConfig(), nil)
	if _, err := cb.Execute(func() (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}

	stats := cb.Stats()
	if stats["name"] != "stats" {
		t.Errorf("name = %v, want stats", stats["name"])
	}
	if stats["state"] != "closed" {
		t.Errorf("state = %v, want closed", stats["state"])
	}
	if stats["enabled"] != true {
		t.Error("expected enabled breaker")
	}
}

func TestBackendRejectionsDoNotTrip(t *testing.T) {
	cb := New[int]("rejections", testConfig(), testLogger)
	rejected := func() (int, error) {
		return 0, errors.NewBackendError(errors.ErrCodeBackendRejected, "quota exceeded", nil)
	}

	for i := 0; i < 5; i++ {
		if _, err := cb.Execute(rejected); err == nil {
			t.Fatal("expected rejection to be returned")
		}
	}
	if !cb.IsHealthy() {
		t.Error("backend rejections must not open the breaker")
	}
}
