package joint

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/armdeck/internal/pose"
)

var (
	// ErrJointExists is returned when Register is called with a duplicate name.
	ErrJointExists = errors.New("joint name already registered")

	// ErrJointNotFound is returned when Unregister is called with an unknown name.
	ErrJointNotFound = errors.New("joint name not registered")
)

// Animator drives a smooth multi-joint transition to a target pose. The
// returned channel closes when the run completes or is preempted.
type Animator interface {
	Start(ctx context.Context, target pose.Pose, duration time.Duration) <-chan struct{}
}

// Registry holds all live joint controllers, keyed by name, preserving
// registration order. It is the unit of pose snapshot/restore and owns the
// animation preemption token: starting a new animated restore invalidates
// any run still in flight.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	order    []*Controller
	byName   map[string]*Controller
	animator Animator
	runToken uuid.UUID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Controller)}
}

// SetAnimator wires the animator used by animated restores.
func (r *Registry) SetAnimator(a Animator) {
	r.mu.Lock()
	r.animator = a
	r.mu.Unlock()
}

// Register adds a controller. Duplicate names are rejected.
func (r *Registry) Register(c *Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name()]; exists {
		return ErrJointExists
	}
	r.byName[c.Name()] = c
	r.order = append(r.order, c)
	return nil
}

// Unregister removes the controller registered under name and detaches it
// from its scene node.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	c, exists := r.byName[name]
	if !exists {
		r.mu.Unlock()
		return ErrJointNotFound
	}
	delete(r.byName, name)
	for i, other := range r.order {
		if other == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	c.Detach()
	return nil
}

// All returns the controllers in registration order.
func (r *Registry) All() []*Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Controller, len(r.order))
	copy(out, r.order)
	return out
}

// FindByName returns the controller registered under name.
func (r *Registry) FindByName(name string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Snapshot reads every controller's display angle into a pose. No side
// effects.
func (r *Registry) Snapshot() pose.Pose {
	controllers := r.All()

	p := make(pose.Pose, len(controllers))
	for _, c := range controllers {
		p[c.Name()] = c.DisplayAngle()
	}
	return p
}

// Restore applies a pose. Names without a registered controller are ignored
// silently; the pose need not cover every joint. With animate set the whole
// batch is handed to the animator so all joints move in one synchronized
// run; the returned channel closes when that run finishes or is preempted.
// Without animate the angles apply immediately and the returned channel is
// already closed.
func (r *Registry) Restore(ctx context.Context, p pose.Pose, animate bool, duration time.Duration) <-chan struct{} {
	r.mu.RLock()
	animator := r.animator
	r.mu.RUnlock()

	if animate && animator != nil {
		return animator.Start(ctx, p, duration)
	}
	if animate {
		slog.Warn("animated restore requested with no animator wired, applying directly")
	}

	for name, angle := range p {
		c, ok := r.FindByName(name)
		if !ok {
			continue
		}
		c.SetDisplayAngle(angle)
	}

	done := make(chan struct{})
	close(done)
	return done
}

// NewRunToken issues a fresh animation token, invalidating any previous one.
// Each animation frame checks its token before applying updates, turning
// concurrent restores into deterministic preemption.
func (r *Registry) NewRunToken() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runToken = uuid.New()
	return r.runToken
}

// TokenValid reports whether token is still the current animation token.
func (r *Registry) TokenValid(token uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runToken == token
}
