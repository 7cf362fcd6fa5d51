package cliconfig

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/framegraph/pkg/graph"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Senders != 2 {
		t.Errorf("Senders = %v, want 2", cfg.Senders)
	}
	if cfg.SinkPolicy != "adjust" {
		t.Errorf("SinkPolicy = %v, want adjust", cfg.SinkPolicy)
	}
	if cfg.RateBufferSize != graph.DefaultRateBufferSize {
		t.Errorf("RateBufferSize = %v, want %v", cfg.RateBufferSize, graph.DefaultRateBufferSize)
	}
	if cfg.PollTimeout != graph.DefaultPollTimeout {
		t.Errorf("PollTimeout = %v, want %v", cfg.PollTimeout, graph.DefaultPollTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{Senders: 1, FramesPerSender: 1}
	}

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantErr    bool
		wantPolicy graph.SinkPolicy
	}{
		{
			name:       "valid minimal config gets derived defaults",
			mutate:     func(*Config) {},
			wantPolicy: graph.PolicyAdjustRate,
		},
		{
			name:       "policy is case insensitive",
			mutate:     func(c *Config) { c.SinkPolicy = " NONE " },
			wantPolicy: graph.PolicyNone,
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.SinkPolicy = "drop" },
			wantErr: true,
		},
		{
			name:    "no senders",
			mutate:  func(c *Config) { c.Senders = 0 },
			wantErr: true,
		},
		{
			name:    "no frames",
			mutate:  func(c *Config) { c.FramesPerSender = 0 },
			wantErr: true,
		},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.QueueCapacity = -1 },
			wantErr: true,
		},
		{
			name:    "negative fps",
			mutate:  func(c *Config) { c.TargetFPS = -5 },
			wantErr: true,
		},
		{
			name:    "negative stage cost",
			mutate:  func(c *Config) { c.StageCost = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "negative gate threshold",
			mutate:  func(c *Config) { c.GateThreshold = -1 },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				if err == nil {
					t.Error("Validate() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if cfg.Policy() != tt.wantPolicy {
				t.Errorf("Policy() = %v, want %v", cfg.Policy(), tt.wantPolicy)
			}
			if cfg.RateBufferSize != graph.DefaultRateBufferSize {
				t.Errorf("RateBufferSize = %v, want default", cfg.RateBufferSize)
			}
			if cfg.PollTimeout != graph.DefaultPollTimeout {
				t.Errorf("PollTimeout = %v, want default", cfg.PollTimeout)
			}
			if cfg.Level() != zerolog.InfoLevel {
				t.Errorf("Level() = %v, want info", cfg.Level())
			}
		})
	}
}

func TestConfig_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		cfg := Config{LogLevel: tt.in}
		if got := cfg.Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
