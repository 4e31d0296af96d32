// Package config loads and validates the armdeck YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete armdeck configuration.
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"` // graceful shutdown timeout in seconds (default: 5)
	HTTP             HTTPConfig      `yaml:"http"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
	Publish          PublishConfig   `yaml:"publish"`
	Animation        AnimationConfig `yaml:"animation"`
	Storage          StorageConfig   `yaml:"storage"`
	Joints           []JointConfig   `yaml:"joints"`
}

// HTTPConfig contains the browser control-surface settings.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"` // e.g. ":8080"
}

// MQTTConfig contains MQTT broker settings. An empty broker disables the
// network bridge; the web surface keeps working without it.
type MQTTConfig struct {
	Broker string          `yaml:"broker"`
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains the bridge's topic names.
type MQTTTopics struct {
	Command string `yaml:"command"` // inbound robot commands
	Pose    string `yaml:"pose"`    // outbound pose messages
}

// PublishConfig controls the outbound pose stream.
type PublishConfig struct {
	AutoPublish bool    `yaml:"auto_publish"`
	RateHz      float64 `yaml:"rate_hz"`
}

// AnimationConfig controls pose transition animation.
type AnimationConfig struct {
	FrameRateHz       float64 `yaml:"frame_rate_hz"`
	DefaultDurationMs int     `yaml:"default_duration_ms"`
}

// StorageConfig locates the pose persistence directory.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// JointConfig defines one axis of the arm.
type JointConfig struct {
	Name          string     `yaml:"name"`
	HomeOffsetDeg float64    `yaml:"home_offset_deg"`
	MinDeg        float64    `yaml:"min_deg"`
	MaxDeg        float64    `yaml:"max_deg"`
	Axis          [3]float64 `yaml:"axis"` // unit hinge direction
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a ready-to-run configuration with the standard six-axis
// joint table.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "armdeck-0"
	}
	if cfg.HTTP.ListenAddr == "" {
		cfg.HTTP.ListenAddr = ":8080"
	}
	if cfg.Publish.RateHz == 0 {
		cfg.Publish.RateHz = 2.0
	}
	if cfg.Animation.FrameRateHz == 0 {
		cfg.Animation.FrameRateHz = 60.0
	}
	if cfg.Animation.DefaultDurationMs == 0 {
		cfg.Animation.DefaultDurationMs = 1500
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data/poses"
	}
	if cfg.MQTT.Topics.Command == "" {
		cfg.MQTT.Topics.Command = "armdeck/command"
	}
	if cfg.MQTT.Topics.Pose == "" {
		cfg.MQTT.Topics.Pose = "armdeck/pose"
	}
	if len(cfg.Joints) == 0 {
		cfg.Joints = DefaultJoints()
	}
}

// DefaultJoints returns the fixed six-entry axis table of the simulated arm.
// Home offsets account for the model's rest geometry: A2 and A3 rest bent,
// not at zero rotation.
func DefaultJoints() []JointConfig {
	return []JointConfig{
		{Name: "A1", HomeOffsetDeg: 0, MinDeg: -185, MaxDeg: 185, Axis: [3]float64{0, 1, 0}},
		{Name: "A2", HomeOffsetDeg: -90, MinDeg: -140, MaxDeg: -5, Axis: [3]float64{0, 0, 1}},
		{Name: "A3", HomeOffsetDeg: 90, MinDeg: -120, MaxDeg: 168, Axis: [3]float64{0, 0, 1}},
		{Name: "A4", HomeOffsetDeg: 0, MinDeg: -345, MaxDeg: 345, Axis: [3]float64{1, 0, 0}},
		{Name: "A5", HomeOffsetDeg: 0, MinDeg: -125, MaxDeg: 125, Axis: [3]float64{0, 0, 1}},
		{Name: "A6", HomeOffsetDeg: 0, MinDeg: -345, MaxDeg: 345, Axis: [3]float64{1, 0, 0}},
	}
}
