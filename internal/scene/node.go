package scene

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Node is a named scene-graph node with a single mutable rotation around a
// fixed hinge axis. Rotation listeners fire synchronously from SetRotation,
// including for the writer's own write; hover listeners fire on every hover
// transition.
type Node struct {
	name string
	axis r3.Vec

	mu             sync.Mutex
	angle          float64
	hovered        bool
	rotListeners   []func(angleRadians float64)
	hoverListeners []func(hovered bool)
}

// Name returns the node's registered name.
func (n *Node) Name() string { return n.name }

// Axis returns the node's fixed hinge axis.
func (n *Node) Axis() r3.Vec { return n.axis }

// Rotation returns the current rotation angle in radians.
func (n *Node) Rotation() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.angle
}

// SetRotation updates the rotation angle and notifies all rotation listeners
// before returning. The axis argument is accepted for contract parity with
// the renderer but the hinge direction never changes at runtime.
func (n *Node) SetRotation(axis r3.Vec, angleRadians float64) {
	n.mu.Lock()
	n.angle = angleRadians
	listeners := make([]func(float64), len(n.rotListeners))
	copy(listeners, n.rotListeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(angleRadians)
	}
}

// OnRotationChanged registers fn to be called on every rotation write.
func (n *Node) OnRotationChanged(fn func(angleRadians float64)) {
	n.mu.Lock()
	n.rotListeners = append(n.rotListeners, fn)
	n.mu.Unlock()
}

// OnHoverChange registers fn to be called on every hover transition.
func (n *Node) OnHoverChange(fn func(hovered bool)) {
	n.mu.Lock()
	n.hoverListeners = append(n.hoverListeners, fn)
	n.mu.Unlock()
}

// SetHovered records a hover transition, typically driven by pointer events
// relayed from the browser. Listeners fire only when the state changes.
func (n *Node) SetHovered(hovered bool) {
	n.mu.Lock()
	if n.hovered == hovered {
		n.mu.Unlock()
		return
	}
	n.hovered = hovered
	listeners := make([]func(bool), len(n.hoverListeners))
	copy(listeners, n.hoverListeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(hovered)
	}
}
