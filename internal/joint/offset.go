// Package joint implements the bidirectional synchronization engine for the
// arm's axes: the mapping between on-screen display angles and mechanical
// scene rotations, one controller per axis, and the registry that snapshots
// and restores full poses.
package joint

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DeadBandDegrees is the minimum display-angle difference a scene-originated
// rotation change must exceed to be accepted as a genuine external change.
// Smaller deltas are treated as the echo of the controller's own write; the
// scene fires its change event synchronously on every write, so without this
// threshold a write would retrigger itself through floating-point rounding.
const DeadBandDegrees = 0.5

// Spec describes one axis. Specs are fixed at construction and never change
// at runtime.
type Spec struct {
	// Name identifies the axis ("A1".."A6") and its scene node.
	Name string

	// HomeOffsetDegrees corrects for the model's rest geometry not being
	// zero-rotation for this axis.
	HomeOffsetDegrees float64

	// MinDisplayAngle and MaxDisplayAngle bound the display angle, inclusive.
	MinDisplayAngle float64
	MaxDisplayAngle float64

	// RotationAxis is the mechanical hinge direction, a unit vector.
	RotationAxis r3.Vec
}

// ToMechanical converts a display angle in degrees to the mechanical scene
// rotation in radians.
func ToMechanical(displayDegrees, homeOffsetDegrees float64) float64 {
	return (displayDegrees - homeOffsetDegrees) * math.Pi / 180
}

// ToDisplay converts a mechanical scene rotation in radians back to the
// display angle in degrees. Exact inverse of ToMechanical.
func ToDisplay(mechanicalRadians, homeOffsetDegrees float64) float64 {
	return mechanicalRadians*180/math.Pi + homeOffsetDegrees
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampDisplay bounds a display angle to the spec's range.
func (s Spec) ClampDisplay(v float64) float64 {
	return Clamp(v, s.MinDisplayAngle, s.MaxDisplayAngle)
}
