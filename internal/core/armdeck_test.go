package core

import (
	"context"
	"testing"
	"time"

	"github.com/visiona/armdeck/internal/config"
)

func newTestArmdeck(t *testing.T) *Armdeck {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.HTTP.ListenAddr = "127.0.0.1:0"

	a, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	return a
}

func TestMoveJoint(t *testing.T) {
	a := newTestArmdeck(t)

	if err := a.moveJoint("A1", 45); err != nil {
		t.Fatalf("moveJoint failed: %v", err)
	}
	if got := a.registry.Snapshot()["A1"]; got != 45 {
		t.Errorf("expected A1 at 45, got %v", got)
	}

	if err := a.moveJoint("A9", 10); err == nil {
		t.Error("expected error for unknown joint")
	}
}

// TestHomeClampsToRange verifies homing targets zero but respects joints
// whose reachable range excludes it.
func TestHomeClampsToRange(t *testing.T) {
	a := newTestArmdeck(t)

	if err := a.moveJoint("A1", 90); err != nil {
		t.Fatalf("moveJoint failed: %v", err)
	}
	if err := a.home(false); err != nil {
		t.Fatalf("home failed: %v", err)
	}

	snap := a.registry.Snapshot()
	if snap["A1"] != 0 {
		t.Errorf("expected A1 homed to 0, got %v", snap["A1"])
	}
	// A2 spans [-140, -5], so its home rests on the nearest bound.
	if snap["A2"] != -5 {
		t.Errorf("expected A2 homed to -5, got %v", snap["A2"])
	}
}

func TestUpdateConfig(t *testing.T) {
	a := newTestArmdeck(t)

	err := a.UpdateConfig(map[string]interface{}{
		"publish":   map[string]interface{}{"rate_hz": 5.0, "auto_publish": true},
		"animation": map[string]interface{}{"default_duration_ms": 800.0},
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	if got := a.emitter.Rate(); got != 5.0 {
		t.Errorf("expected publish rate 5.0, got %v", got)
	}
	if !a.emitter.AutoPublish() {
		t.Error("expected auto publish enabled")
	}
	if got := a.defaultDuration(); got != 800*time.Millisecond {
		t.Errorf("expected default duration 800ms, got %v", got)
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	a := newTestArmdeck(t)

	if err := a.UpdateConfig(map[string]interface{}{}); err == nil {
		t.Error("expected error for empty changes")
	}
	if err := a.UpdateConfig(map[string]interface{}{"joints": []interface{}{}}); err == nil {
		t.Error("expected error for non-reloadable section")
	}
	err := a.UpdateConfig(map[string]interface{}{
		"animation": map[string]interface{}{"default_duration_ms": -10.0},
	})
	if err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestStatusBeforeRun(t *testing.T) {
	a := newTestArmdeck(t)

	status := a.Status()
	if status["running"] != false {
		t.Error("expected running false before Run")
	}
	joints, ok := status["joints"].(map[string]string)
	if !ok || len(joints) != 6 {
		t.Errorf("expected six joint states, got %v", status["joints"])
	}
	if _, present := status["mqtt_connected"]; present {
		t.Error("mqtt_connected must be absent when no broker is configured")
	}
}

// TestRunPersistsPoseAcrossRestart drives the full lifecycle: run, move,
// shut down, then verify a fresh instance over the same storage restores
// the pose.
func TestRunPersistsPoseAcrossRestart(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.HTTP.ListenAddr = "127.0.0.1:0"

	a, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitHealthy(t, a)

	if err := a.moveJoint("A4", 120); err != nil {
		t.Fatalf("moveJoint failed: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit on cancel")
	}
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := a.Shutdown(shutCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	b, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	ctx2, cancel2 := context.WithCancel(context.Background())
	done2 := make(chan error, 1)
	go func() { done2 <- b.Run(ctx2) }()
	waitHealthy(t, b)

	if got := b.registry.Snapshot()["A4"]; got != 120 {
		t.Errorf("expected A4 restored to 120, got %v", got)
	}

	cancel2()
	<-done2
	if err := b.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func waitHealthy(t *testing.T, a *Armdeck) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a.HealthCheck().Status == "healthy" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("service never became healthy: %+v", a.HealthCheck())
}
