// Package scene is the simulated 3D scene collaborator.
//
// The real renderer lives in the browser; this package holds the
// authoritative rotation state per node and the notification contract the
// joint controllers depend on. Every node the control surface cares about is
// registered by name at scene-load time, so lookups never walk a tree.
//
// SetRotation notifies rotation listeners synchronously, exactly like a
// scene graph that fires its change event during the mutation. Controllers
// rely on this to exercise their echo suppression.
package scene

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSceneUnavailable is returned when a node is resolved before the scene
// finished loading, or for a name that was never registered.
var ErrSceneUnavailable = errors.New("scene node unavailable")

// Scene is a registry of named nodes. Nodes are registered during
// construction and become resolvable once MarkLoaded is called, mirroring
// the asynchronous load of the real renderer.
type Scene struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	loaded bool
}

// New creates an empty, not-yet-loaded scene.
func New() *Scene {
	return &Scene{nodes: make(map[string]*Node)}
}

// Register adds a node under name with its fixed hinge axis. Registering the
// same name twice returns the existing node.
func (s *Scene) Register(name string, axis r3.Vec) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[name]; ok {
		return n
	}
	n := &Node{name: name, axis: axis}
	s.nodes[name] = n
	return n
}

// MarkLoaded makes registered nodes resolvable.
func (s *Scene) MarkLoaded() {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether the scene finished loading.
func (s *Scene) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ResolveNode returns the node registered under name. Before MarkLoaded, or
// for unknown names, it fails with ErrSceneUnavailable.
func (s *Scene) ResolveNode(name string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, fmt.Errorf("%w: scene not loaded", ErrSceneUnavailable)
	}
	n, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: no node %q", ErrSceneUnavailable, name)
	}
	return n, nil
}

// Names returns all registered node names.
func (s *Scene) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		names = append(names, name)
	}
	return names
}
