package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/framegraph/pkg/graph"
)

// Config holds CLI configuration for the framegraph demo pipeline.
type Config struct {
	// Senders is the number of generator trees feeding the join pool.
	Senders int
	// FramesPerSender is the number of FrameSets each generator emits.
	FramesPerSender int
	// QueueCapacity bounds every pipeline queue; zero means unbounded.
	QueueCapacity int
	// TargetFPS paces the pipeline sources; zero means unthrottled.
	TargetFPS float64
	// SinkPolicy is "none" or "adjust".
	SinkPolicy string
	// StageCost is the simulated per-frame cost of the heavy stage.
	StageCost time.Duration

	// GateThreshold enables resource gating above this many goroutines per
	// CPU; zero disables it.
	GateThreshold float64

	RateBufferSize int
	PollTimeout    time.Duration

	MetricsAddr string
	LogLevel    string
	WatchConfig bool
	Display     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Senders:         2,
		FramesPerSender: 100,
		QueueCapacity:   8,
		TargetFPS:       60,
		SinkPolicy:      graph.PolicyAdjustRate.String(),
		StageCost:       2 * time.Millisecond,
		RateBufferSize:  graph.DefaultRateBufferSize,
		PollTimeout:     graph.DefaultPollTimeout,
		LogLevel:        zerolog.InfoLevel.String(),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Senders <= 0 {
		return fmt.Errorf("senders must be positive")
	}
	if c.FramesPerSender <= 0 {
		return fmt.Errorf("frames must be positive")
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue capacity must not be negative")
	}
	if c.TargetFPS < 0 {
		return fmt.Errorf("target fps must not be negative")
	}
	if c.StageCost < 0 {
		return fmt.Errorf("stage cost must not be negative")
	}
	if c.GateThreshold < 0 {
		return fmt.Errorf("gate threshold must not be negative")
	}

	c.SinkPolicy = strings.ToLower(strings.TrimSpace(c.SinkPolicy))
	if c.SinkPolicy == "" {
		c.SinkPolicy = graph.PolicyAdjustRate.String()
	}
	if _, err := graph.ParseSinkPolicy(c.SinkPolicy); err != nil {
		return err
	}

	if c.RateBufferSize <= 0 {
		c.RateBufferSize = graph.DefaultRateBufferSize
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = graph.DefaultPollTimeout
	}

	if c.LogLevel == "" {
		c.LogLevel = zerolog.InfoLevel.String()
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Policy returns the parsed sink policy. Call Validate first.
func (c Config) Policy() graph.SinkPolicy {
	p, _ := graph.ParseSinkPolicy(c.SinkPolicy)
	return p
}

// Level returns the parsed log level, info if it does not parse.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
