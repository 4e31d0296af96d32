package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/visiona/armdeck/internal/config"
	"github.com/visiona/armdeck/internal/pose"
)

// ErrUnknownCommand is returned for command types the bridge does not
// understand. Logged and ignored, never fatal.
var ErrUnknownCommand = errors.New("unknown command type")

// Command is the inbound wire format, discriminated by Type.
type Command struct {
	Type       string                 `json:"type"`
	Joint      string                 `json:"joint,omitempty"`
	Angle      *float64               `json:"angle,omitempty"`
	Pose       map[string]float64     `json:"pose,omitempty"`
	Animate    bool                   `json:"animate,omitempty"`
	DurationMs int                    `json:"duration_ms,omitempty"`
	RateHz     *float64               `json:"rate_hz,omitempty"`
	Enabled    *bool                  `json:"enabled,omitempty"`
	Config     map[string]interface{} `json:"config,omitempty"`
}

// Callbacks contains the operations the handler dispatches to.
type Callbacks struct {
	OnMove         func(p pose.Pose, animate bool, duration time.Duration) error
	OnMoveJoint    func(name string, angle float64) error
	OnHome         func(animate bool) error
	OnGetPose      func() error
	OnSetRate      func(hz float64) error
	OnSetPublish   func(enabled bool) error
	OnUpdateConfig func(changes map[string]interface{}) error
}

// Handler subscribes to the command topic and dispatches commands to the
// registry through Callbacks. Commands are queued on a small buffer and
// processed on a single goroutine, so remote moves interleave with local
// slider input instead of racing it.
type Handler struct {
	cfg       *config.Config
	client    mqtt.Client
	commands  chan Command
	callbacks Callbacks
}

// NewHandler creates a command handler on client.
func NewHandler(cfg *config.Config, client mqtt.Client, callbacks Callbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		commands:  make(chan Command, 16),
		callbacks: callbacks,
	}
}

// Start subscribes to the command topic and begins processing.
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.MQTT.Topics.Command
	qos := h.cfg.MQTT.QoS["command"]

	slog.Info("subscribing to command topic", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("command subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("command subscription failed: %w", err)
	}

	go h.processCommands(ctx)

	slog.Info("command handler started")
	return nil
}

// Stop unsubscribes and stops processing.
func (h *Handler) Stop() error {
	topic := h.cfg.MQTT.Topics.Command

	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(topic)
		token.Wait()
	}

	close(h.commands)

	slog.Info("command handler stopped")
	return nil
}

func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("failed to parse command", "error", err)
		return
	}

	slog.Info("command received", "type", cmd.Type)

	select {
	case h.commands <- cmd:
	default:
		slog.Warn("command queue full, dropping command", "type", cmd.Type)
	}
}

func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.commands:
			if !ok {
				return
			}
			if err := h.dispatch(cmd); err != nil {
				slog.Warn("command failed", "type", cmd.Type, "error", err)
			}
		}
	}
}

// dispatch executes one command against the callbacks.
func (h *Handler) dispatch(cmd Command) error {
	switch cmd.Type {
	case "move":
		if len(cmd.Pose) == 0 {
			return fmt.Errorf("move: missing or empty 'pose'")
		}
		duration := time.Duration(cmd.DurationMs) * time.Millisecond
		if duration == 0 {
			duration = time.Duration(h.cfg.Animation.DefaultDurationMs) * time.Millisecond
		}
		return h.callbacks.OnMove(pose.Pose(cmd.Pose), cmd.Animate, duration)

	case "move_joint":
		if cmd.Joint == "" {
			return fmt.Errorf("move_joint: missing 'joint'")
		}
		if cmd.Angle == nil {
			return fmt.Errorf("move_joint: missing 'angle'")
		}
		return h.callbacks.OnMoveJoint(cmd.Joint, *cmd.Angle)

	case "home":
		return h.callbacks.OnHome(cmd.Animate)

	case "get_pose":
		return h.callbacks.OnGetPose()

	case "set_publish_rate":
		if cmd.RateHz == nil {
			return fmt.Errorf("set_publish_rate: missing 'rate_hz'")
		}
		return h.callbacks.OnSetRate(*cmd.RateHz)

	case "set_auto_publish":
		if cmd.Enabled == nil {
			return fmt.Errorf("set_auto_publish: missing 'enabled'")
		}
		return h.callbacks.OnSetPublish(*cmd.Enabled)

	case "update_config":
		if len(cmd.Config) == 0 {
			return fmt.Errorf("update_config: missing 'config'")
		}
		return h.callbacks.OnUpdateConfig(cmd.Config)

	default:
		slog.Warn("ignoring unknown command", "type", cmd.Type)
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
