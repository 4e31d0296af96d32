package joint

import (
	"context"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/visiona/armdeck/internal/pose"
)

func detachedController(name string) *Controller {
	return NewController(ControllerConfig{
		Spec: Spec{
			Name:            name,
			MinDisplayAngle: -345,
			MaxDisplayAngle: 345,
			RotationAxis:    r3.Vec{Y: 1},
		},
		Resolver: neverResolve(),
	})
}

func sixAxisRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		if err := r.Register(detachedController(name)); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}
	return r
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(detachedController("A1")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(detachedController("A1")); err != ErrJointExists {
		t.Errorf("expected ErrJointExists, got %v", err)
	}
}

func TestUnregister(t *testing.T) {
	r := sixAxisRegistry(t)

	if err := r.Unregister("A3"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if _, ok := r.FindByName("A3"); ok {
		t.Error("A3 still resolvable after unregister")
	}
	if err := r.Unregister("A3"); err != ErrJointNotFound {
		t.Errorf("expected ErrJointNotFound, got %v", err)
	}
	if got := len(r.All()); got != 5 {
		t.Errorf("expected 5 controllers, got %d", got)
	}
}

func TestAllInsertionOrder(t *testing.T) {
	r := sixAxisRegistry(t)
	want := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	for i, c := range r.All() {
		if c.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], c.Name())
		}
	}
}

// TestSnapshotRestoreIdempotent verifies restoring a registry's own
// snapshot changes nothing.
func TestSnapshotRestoreIdempotent(t *testing.T) {
	r := sixAxisRegistry(t)
	angles := map[string]float64{"A1": 45, "A2": -30, "A3": 10, "A4": 120, "A5": -60, "A6": 345}
	for name, angle := range angles {
		c, _ := r.FindByName(name)
		c.SetDisplayAngle(angle)
	}

	snap := r.Snapshot()
	<-r.Restore(context.Background(), snap, false, 0)

	for name, want := range angles {
		c, _ := r.FindByName(name)
		if got := c.DisplayAngle(); got != want {
			t.Errorf("%s: expected %v after restore, got %v", name, want, got)
		}
	}
}

// TestRestorePartialPose verifies only the named joints move; the rest stay
// put, and unknown names are ignored silently.
func TestRestorePartialPose(t *testing.T) {
	r := sixAxisRegistry(t)
	for _, c := range r.All() {
		c.SetDisplayAngle(100)
	}

	<-r.Restore(context.Background(), pose.Pose{"A1": 45, "A3": 10, "A9": 77}, false, 0)

	want := map[string]float64{"A1": 45, "A2": 100, "A3": 10, "A4": 100, "A5": 100, "A6": 100}
	for name, expected := range want {
		c, _ := r.FindByName(name)
		if got := c.DisplayAngle(); got != expected {
			t.Errorf("%s: expected %v, got %v", name, expected, got)
		}
	}
}

// TestRunTokenInvalidation verifies issuing a new token invalidates the
// previous one, the preemption mechanism for concurrent animated restores.
func TestRunTokenInvalidation(t *testing.T) {
	r := NewRegistry()

	first := r.NewRunToken()
	if !r.TokenValid(first) {
		t.Fatal("fresh token must be valid")
	}

	second := r.NewRunToken()
	if r.TokenValid(first) {
		t.Error("stale token still valid after new run started")
	}
	if !r.TokenValid(second) {
		t.Error("current token reported invalid")
	}
}

// fakeAnimator records delegation from animated restores.
type fakeAnimator struct {
	target   pose.Pose
	duration time.Duration
	calls    int
}

func (f *fakeAnimator) Start(ctx context.Context, target pose.Pose, duration time.Duration) <-chan struct{} {
	f.target = target
	f.duration = duration
	f.calls++
	done := make(chan struct{})
	close(done)
	return done
}

func TestRestoreAnimatedDelegates(t *testing.T) {
	r := sixAxisRegistry(t)
	fa := &fakeAnimator{}
	r.SetAnimator(fa)

	target := pose.Pose{"A1": 45, "A3": 10}
	<-r.Restore(context.Background(), target, true, 2*time.Second)

	if fa.calls != 1 {
		t.Fatalf("expected 1 animator call, got %d", fa.calls)
	}
	if fa.duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", fa.duration)
	}
	if len(fa.target) != 2 {
		t.Errorf("expected 2 joints in target, got %d", len(fa.target))
	}

	// The whole batch goes to one run; no direct writes happened.
	c, _ := r.FindByName("A1")
	if got := c.DisplayAngle(); got != 0 {
		t.Errorf("direct write bypassed animator: A1=%v", got)
	}
}
