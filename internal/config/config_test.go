package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "armdeck.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "instance_id: cell-7\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InstanceID != "cell-7" {
		t.Errorf("expected instance_id cell-7, got %s", cfg.InstanceID)
	}
	if cfg.HTTP.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %s", cfg.HTTP.ListenAddr)
	}
	if cfg.Publish.RateHz != 2.0 {
		t.Errorf("expected default rate 2.0, got %v", cfg.Publish.RateHz)
	}
	if len(cfg.Joints) != 6 {
		t.Errorf("expected default six-axis table, got %d joints", len(cfg.Joints))
	}
}

func TestLoadJointTable(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
instance_id: cell-7
joints:
  - name: A1
    home_offset_deg: -90
    min_deg: -140
    max_deg: -5
    axis: [0, 0, 1]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Joints) != 1 {
		t.Fatalf("expected 1 joint, got %d", len(cfg.Joints))
	}
	j := cfg.Joints[0]
	if j.HomeOffsetDeg != -90 || j.MinDeg != -140 || j.MaxDeg != -5 {
		t.Errorf("unexpected joint: %+v", j)
	}
	if j.Axis != [3]float64{0, 0, 1} {
		t.Errorf("unexpected axis: %v", j.Axis)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "joints: [not a joint")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"bad instance id", func(c *Config) { c.InstanceID = "Bad ID!" }, true},
		{"zero publish rate", func(c *Config) { c.Publish.RateHz = 0 }, true},
		{"zero frame rate", func(c *Config) { c.Animation.FrameRateHz = 0 }, true},
		{"negative duration", func(c *Config) { c.Animation.DefaultDurationMs = -1 }, true},
		{"no joints", func(c *Config) { c.Joints = nil }, true},
		{"duplicate joint", func(c *Config) { c.Joints = append(c.Joints, c.Joints[0]) }, true},
		{"inverted bounds", func(c *Config) { c.Joints[0].MinDeg = 200; c.Joints[0].MaxDeg = -200 }, true},
		{"zero axis", func(c *Config) { c.Joints[0].Axis = [3]float64{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
