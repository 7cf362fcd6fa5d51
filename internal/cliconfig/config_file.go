package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Senders         int     `toml:"senders" yaml:"senders"`
	FramesPerSender int     `toml:"frames" yaml:"frames"`
	QueueCapacity   int     `toml:"queue_capacity" yaml:"queue_capacity"`
	TargetFPS       float64 `toml:"target_fps" yaml:"target_fps"`
	SinkPolicy      string  `toml:"sink_policy" yaml:"sink_policy"`
	StageCost       string  `toml:"stage_cost" yaml:"stage_cost"`
	GateThreshold   float64 `toml:"gate_threshold" yaml:"gate_threshold"`
	RateBufferSize  int     `toml:"rate_buffer" yaml:"rate_buffer"`
	PollTimeout     string  `toml:"poll_timeout" yaml:"poll_timeout"`
	MetricsAddr     string  `toml:"metrics_addr" yaml:"metrics_addr"`
	LogLevel        string  `toml:"log_level" yaml:"log_level"`
	WatchConfig     *bool   `toml:"watch_config" yaml:"watch_config"`
	Display         *bool   `toml:"display" yaml:"display"`
}

// LoadFileConfig reads and parses a config file from the given path. Files
// ending in .yaml or .yml are read as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.framegraph/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".framegraph", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("sink-policy", fc.SinkPolicy, &cfg.SinkPolicy)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("stage-cost", fc.StageCost, &cfg.StageCost); err != nil {
		return err
	}
	if err := s.setDuration("poll-timeout", fc.PollTimeout, &cfg.PollTimeout); err != nil {
		return err
	}

	s.setInt("senders", fc.Senders, &cfg.Senders)
	s.setInt("frames", fc.FramesPerSender, &cfg.FramesPerSender)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setInt("rate-buffer", fc.RateBufferSize, &cfg.RateBufferSize)

	s.setFloat("target-fps", fc.TargetFPS, &cfg.TargetFPS)
	s.setFloat("gate-threshold", fc.GateThreshold, &cfg.GateThreshold)

	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("display", fc.Display, &cfg.Display)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
