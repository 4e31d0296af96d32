// Package bridge connects the joint registry to an MQTT broker: inbound
// robot commands on one topic, outbound pose messages on another.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/visiona/armdeck/internal/config"
	"github.com/visiona/armdeck/internal/pose"
)

// PoseMessage is the outbound wire format.
type PoseMessage struct {
	Timestamp int64              `json:"timestamp"` // epoch milliseconds
	Joints    map[string]float64 `json:"joints"`
	ClientID  string             `json:"clientId"`
}

// Emitter publishes pose messages to the broker, either periodically while
// auto-publish is enabled or once on explicit request.
type Emitter struct {
	cfg      *config.Config
	Client   mqtt.Client // exported for the command handler
	clientID string
	snapshot func() pose.Pose

	mu          sync.RWMutex
	connected   bool
	autoPublish bool
	rateHz      float64
	published   uint64
	errors      uint64
}

// NewEmitter creates an emitter that reads poses through snapshot.
func NewEmitter(cfg *config.Config, snapshot func() pose.Pose) *Emitter {
	return &Emitter{
		cfg:         cfg,
		clientID:    fmt.Sprintf("%s-%s", cfg.InstanceID, uuid.NewString()[:8]),
		snapshot:    snapshot,
		autoPublish: cfg.Publish.AutoPublish,
		rateHz:      cfg.Publish.RateHz,
	}
}

// ClientID returns the identifier stamped on outbound pose messages.
func (e *Emitter) ClientID() string { return e.clientID }

// Connect establishes the broker connection with auto-reconnect.
func (e *Emitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.MQTT.Broker))
	opts.SetClientID(e.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("mqtt connection established",
			"broker", e.cfg.MQTT.Broker,
			"client_id", e.clientID,
		)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.MQTT.Broker,
		)
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", e.cfg.MQTT.Broker)

	token := e.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()

	return nil
}

// PublishPose publishes one pose message now.
func (e *Emitter) PublishPose() error {
	if !e.isConnected() {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("mqtt not connected")
	}

	msg := PoseMessage{
		Timestamp: time.Now().UnixMilli(),
		Joints:    e.snapshot(),
		ClientID:  e.clientID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal pose message: %w", err)
	}

	topic := e.cfg.MQTT.Topics.Pose
	qos := e.cfg.MQTT.QoS["pose"]

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("pose publish timeout")
	}
	if err := token.Error(); err != nil {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("pose publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	slog.Debug("pose published", "topic", topic, "joints", len(msg.Joints))
	return nil
}

// Run drives the periodic pose stream until ctx is cancelled. Rate changes
// take effect on the next tick.
func (e *Emitter) Run(ctx context.Context) {
	for {
		e.mu.RLock()
		rate := e.rateHz
		e.mu.RUnlock()

		interval := time.Duration(float64(time.Second) / rate)
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if !e.AutoPublish() {
				continue
			}
			if err := e.PublishPose(); err != nil {
				slog.Debug("periodic pose publish skipped", "error", err)
			}
		}
	}
}

// SetRate updates the auto-publish rate.
func (e *Emitter) SetRate(hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("publish rate must be positive, got %v", hz)
	}
	e.mu.Lock()
	e.rateHz = hz
	e.mu.Unlock()
	slog.Info("pose publish rate updated", "rate_hz", hz)
	return nil
}

// Rate returns the current auto-publish rate.
func (e *Emitter) Rate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rateHz
}

// SetAutoPublish enables or disables the periodic pose stream.
func (e *Emitter) SetAutoPublish(enabled bool) {
	e.mu.Lock()
	e.autoPublish = enabled
	e.mu.Unlock()
	slog.Info("pose auto-publish toggled", "enabled", enabled)
}

// AutoPublish reports whether the periodic stream is enabled.
func (e *Emitter) AutoPublish() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.autoPublish
}

// Disconnect closes the broker connection.
func (e *Emitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250) // 250ms grace period
		slog.Info("mqtt disconnected")
	}

	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	return nil
}

// Stats contains emitter counters.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// EmitterStats returns a snapshot of the counters.
func (e *Emitter) EmitterStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Connected: e.connected, Published: e.published, Errors: e.errors}
}

func (e *Emitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}
