package core

import (
	"fmt"
	"log/slog"
)

// UpdateConfig applies configuration changes at runtime without a restart.
// Only the publish and animation sections are reloadable; the joint table
// and listen addresses require a restart. Unknown keys are ignored so a
// newer controller can talk to an older daemon.
func (a *Armdeck) UpdateConfig(changes map[string]interface{}) error {
	applied := []string{}

	if publishCfg, ok := changes["publish"].(map[string]interface{}); ok {
		if rate, ok := publishCfg["rate_hz"].(float64); ok {
			old := a.emitter.Rate()
			if err := a.emitter.SetRate(rate); err != nil {
				return fmt.Errorf("publish.rate_hz: %w", err)
			}
			applied = append(applied, fmt.Sprintf("publish.rate_hz: %v -> %v", old, rate))
		}
		if auto, ok := publishCfg["auto_publish"].(bool); ok {
			a.emitter.SetAutoPublish(auto)
			applied = append(applied, fmt.Sprintf("publish.auto_publish: %v", auto))
		}
	}

	if animCfg, ok := changes["animation"].(map[string]interface{}); ok {
		if ms, ok := animCfg["default_duration_ms"].(float64); ok {
			if ms < 0 {
				return fmt.Errorf("animation.default_duration_ms: must be non-negative, got %v", ms)
			}
			a.mu.Lock()
			old := a.cfg.Animation.DefaultDurationMs
			a.cfg.Animation.DefaultDurationMs = int(ms)
			a.mu.Unlock()
			applied = append(applied, fmt.Sprintf("animation.default_duration_ms: %d -> %d", old, int(ms)))
		}
	}

	if len(applied) == 0 {
		return fmt.Errorf("no reloadable configuration changes found")
	}

	for _, change := range applied {
		slog.Info("config changed", "change", change)
	}
	return nil
}
