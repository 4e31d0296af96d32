package joint

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// NodeHandle is the part of a scene node a controller needs.
type NodeHandle interface {
	SetRotation(axis r3.Vec, angleRadians float64)
	OnRotationChanged(fn func(angleRadians float64))
	OnHoverChange(fn func(hovered bool))
}

// Resolver looks up a scene node by name. It fails while the scene is still
// loading or when the name was never registered.
type Resolver interface {
	ResolveNode(name string) (NodeHandle, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (NodeHandle, error)

// ResolveNode calls f.
func (f ResolverFunc) ResolveNode(name string) (NodeHandle, error) { return f(name) }

// AttachState tracks the controller's scene-attachment state machine:
// Detached -> Pending(attempt) -> Attached | Failed.
type AttachState int

const (
	// Detached means Attach has not run yet.
	Detached AttachState = iota
	// Pending means attachment attempts are in flight.
	Pending
	// Attached means the scene node is resolved and writes go through.
	Attached
	// Failed means all attempts were exhausted; the controller stays usable
	// but scene writes are skipped for the rest of the session.
	Failed
)

func (s AttachState) String() string {
	switch s {
	case Detached:
		return "detached"
	case Pending:
		return "pending"
	case Attached:
		return "attached"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const (
	maxAttachAttempts = 3
	// Retry delay grows linearly: attempt n waits n * defaultRetryDelay.
	defaultRetryDelay = 500 * time.Millisecond
)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Spec     Spec
	Resolver Resolver

	// RetryDelay is the base delay between attachment attempts.
	// Defaults to 500ms.
	RetryDelay time.Duration
}

// Controller owns one axis: its display angle, the wiring to its scene node,
// and the echo suppression that keeps the two consistent under concurrent
// mutation from sliders, scene manipulation and remote commands.
//
// The display angle is always valid, even before the scene node attaches;
// writes are deferred until attachment and a corrective write brings the
// node in sync once it succeeds.
type Controller struct {
	spec       Spec
	resolver   Resolver
	retryDelay time.Duration

	mu      sync.Mutex
	display float64
	node    NodeHandle
	state   AttachState

	onChange func(name string, displayAngle float64)
	onHover  func(name string, hovered bool)
}

// NewController creates a controller in the Detached state with the display
// angle at the spec's clamped zero.
func NewController(cfg ControllerConfig) *Controller {
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = defaultRetryDelay
	}
	return &Controller{
		spec:       cfg.Spec,
		resolver:   cfg.Resolver,
		retryDelay: delay,
		display:    cfg.Spec.ClampDisplay(0),
	}
}

// Spec returns the immutable axis spec.
func (c *Controller) Spec() Spec { return c.spec }

// Name returns the axis name.
func (c *Controller) Name() string { return c.spec.Name }

// State returns the current attachment state.
func (c *Controller) State() AttachState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DisplayAngle returns the current display angle. Available in every
// attachment state.
func (c *Controller) DisplayAngle() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// OnDisplayChanged registers fn to be called after every accepted display
// angle change, whichever source caused it.
func (c *Controller) OnDisplayChanged(fn func(name string, displayAngle float64)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// OnHoverChanged registers fn to be called on hover transitions of the
// controller's scene node.
func (c *Controller) OnHoverChanged(fn func(name string, hovered bool)) {
	c.mu.Lock()
	c.onHover = fn
	c.mu.Unlock()
}

// SetDisplayAngle clamps value to the spec's range, stores it, and writes
// the corresponding mechanical angle to the scene node when attached. The
// stored value updates even while detached so the UI stays responsive.
//
// The scene write happens outside the controller lock: the scene notifies
// its listeners synchronously, which re-enters handleSceneRotation, where
// the dead-band swallows the echo.
func (c *Controller) SetDisplayAngle(value float64) {
	value = c.spec.ClampDisplay(value)

	c.mu.Lock()
	c.display = value
	node := c.node
	fn := c.onChange
	c.mu.Unlock()

	if node != nil {
		node.SetRotation(c.spec.RotationAxis, ToMechanical(value, c.spec.HomeOffsetDegrees))
	}
	if fn != nil {
		fn(c.spec.Name, value)
	}
}

// handleSceneRotation is invoked by the scene on every rotation write to the
// controller's node, including the controller's own. Changes within
// DeadBandDegrees of the stored display angle are dropped as self-echo.
// Never writes back to the scene.
func (c *Controller) handleSceneRotation(mechanicalRadians float64) {
	candidate := c.spec.ClampDisplay(ToDisplay(mechanicalRadians, c.spec.HomeOffsetDegrees))

	c.mu.Lock()
	if math.Abs(candidate-c.display) <= DeadBandDegrees {
		c.mu.Unlock()
		return
	}
	c.display = candidate
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(c.spec.Name, candidate)
	}
}

// Attach resolves the controller's scene node, retrying up to three times
// with linearly increasing delay. On success it subscribes to rotation and
// hover events and performs one corrective write so the node reflects the
// last stored display angle. On exhaustion the controller moves to Failed:
// logged, not fatal, scene writes skipped for the session.
//
// Attach blocks between retries; run it on its own goroutine.
func (c *Controller) Attach(ctx context.Context) {
	c.mu.Lock()
	if c.state == Attached || c.state == Pending {
		c.mu.Unlock()
		return
	}
	c.state = Pending
	c.mu.Unlock()

	for attempt := 1; attempt <= maxAttachAttempts; attempt++ {
		node, err := c.resolver.ResolveNode(c.spec.Name)
		if err == nil {
			c.completeAttach(node)
			return
		}

		slog.Debug("scene node not ready",
			"joint", c.spec.Name,
			"attempt", attempt,
			"error", err,
		)

		if attempt == maxAttachAttempts {
			break
		}
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.state = Detached
			c.mu.Unlock()
			return
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}

	c.mu.Lock()
	c.state = Failed
	c.mu.Unlock()

	slog.Warn("scene node unavailable, skipping scene writes for this session",
		"joint", c.spec.Name,
		"attempts", maxAttachAttempts,
	)
}

func (c *Controller) completeAttach(node NodeHandle) {
	node.OnRotationChanged(c.handleSceneRotation)
	node.OnHoverChange(func(hovered bool) {
		c.mu.Lock()
		fn := c.onHover
		c.mu.Unlock()
		if fn != nil {
			fn(c.spec.Name, hovered)
		}
	})

	c.mu.Lock()
	c.node = node
	c.state = Attached
	last := c.display
	c.mu.Unlock()

	// Corrective write: bring the node in sync with the value accumulated
	// while detached. Runs through the normal echo-suppressed path.
	node.SetRotation(c.spec.RotationAxis, ToMechanical(last, c.spec.HomeOffsetDegrees))

	slog.Info("joint attached to scene node", "joint", c.spec.Name)
}

// Detach drops the node reference. Subsequent writes update stored state
// only. Used at teardown.
func (c *Controller) Detach() {
	c.mu.Lock()
	c.node = nil
	c.state = Detached
	c.mu.Unlock()
}
