package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks a configuration for internal consistency.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.Publish.RateHz <= 0 {
		return fmt.Errorf("publish.rate_hz must be positive, got %v", cfg.Publish.RateHz)
	}
	if cfg.Animation.FrameRateHz <= 0 {
		return fmt.Errorf("animation.frame_rate_hz must be positive, got %v", cfg.Animation.FrameRateHz)
	}
	if cfg.Animation.DefaultDurationMs < 0 {
		return fmt.Errorf("animation.default_duration_ms must not be negative, got %d", cfg.Animation.DefaultDurationMs)
	}
	if len(cfg.Joints) == 0 {
		return fmt.Errorf("at least one joint must be configured")
	}

	seen := make(map[string]bool, len(cfg.Joints))
	for i, j := range cfg.Joints {
		if j.Name == "" {
			return fmt.Errorf("joints[%d]: name is required", i)
		}
		if seen[j.Name] {
			return fmt.Errorf("joints[%d]: duplicate name %q", i, j.Name)
		}
		seen[j.Name] = true

		if j.MinDeg >= j.MaxDeg {
			return fmt.Errorf("joint %q: min_deg %v must be below max_deg %v", j.Name, j.MinDeg, j.MaxDeg)
		}
		if j.Axis == [3]float64{} {
			return fmt.Errorf("joint %q: axis must be a non-zero vector", j.Name)
		}
	}

	return nil
}
