// Package pose defines the pose value type, its canonical JSON encoding,
// and the store that persists the active pose and named configurations to a
// key-value backend.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a pose payload fails to parse. The
// operation aborts and leaves prior state intact; callers decide whether to
// surface or discard it.
var ErrMalformedPayload = errors.New("malformed pose payload")

// Pose maps joint names to display angles in degrees. A pose need not cover
// every joint; absent joints are left unchanged on restore.
type Pose map[string]float64

// Clone returns an independent copy.
func (p Pose) Clone() Pose {
	out := make(Pose, len(p))
	for name, angle := range p {
		out[name] = angle
	}
	return out
}

// Restrict returns the subset of p whose names also appear in other.
func (p Pose) Restrict(other Pose) Pose {
	out := make(Pose, len(other))
	for name := range other {
		if angle, ok := p[name]; ok {
			out[name] = angle
		}
	}
	return out
}

// Encode serializes p to its canonical form: a flat JSON object of joint
// name to numeric angle.
func Encode(p Pose) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode pose: %w", err)
	}
	return string(data), nil
}

// Decode parses the canonical encoding. Invalid syntax or a non-object
// payload fails with ErrMalformedPayload.
func Decode(s string) (Pose, error) {
	var p Pose
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformedPayload)
	}
	return p, nil
}
