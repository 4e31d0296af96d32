package core

import (
	"time"

	"github.com/visiona/armdeck/internal/joint"
)

// HealthStatus summarizes the service state for the readiness endpoint.
type HealthStatus struct {
	Status         string            `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds  int64             `json:"uptime_seconds"`
	JointsAttached int               `json:"joints_attached"`
	JointsTotal    int               `json:"joints_total"`
	MQTTConnected  bool              `json:"mqtt_connected"`
	Joints         map[string]string `json:"joints,omitempty"`
}

// HealthCheck returns the current health of the service. Degraded means the
// process is serving but some joint never attached or the configured broker
// is unreachable; clients can still drive the attached joints.
func (a *Armdeck) HealthCheck() HealthStatus {
	a.mu.RLock()
	running := a.isRunning
	started := a.started
	a.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Joints: make(map[string]string),
	}
	if running {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	}

	for _, c := range a.registry.All() {
		status.JointsTotal++
		state := c.State()
		status.Joints[c.Name()] = state.String()
		if state == joint.Attached {
			status.JointsAttached++
		}
	}

	bridgeConfigured := a.cfg.MQTT.Broker != ""
	if bridgeConfigured {
		status.MQTTConnected = a.emitter.EmitterStats().Connected
	}

	switch {
	case !running:
		status.Status = "unhealthy"
	case status.JointsAttached < status.JointsTotal,
		bridgeConfigured && !status.MQTTConnected:
		status.Status = "degraded"
	}

	return status
}
