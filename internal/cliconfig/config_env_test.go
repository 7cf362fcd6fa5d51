package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"FRAMEGRAPH_SENDERS":        "4",
				"FRAMEGRAPH_FRAMES":         "500",
				"FRAMEGRAPH_QUEUE_CAPACITY": "16",
				"FRAMEGRAPH_TARGET_FPS":     "29.97",
				"FRAMEGRAPH_SINK_POLICY":    "none",
				"FRAMEGRAPH_STAGE_COST":     "3ms",
				"FRAMEGRAPH_GATE_THRESHOLD": "12",
				"FRAMEGRAPH_RATE_BUFFER":    "64",
				"FRAMEGRAPH_POLL_TIMEOUT":   "20ms",
				"FRAMEGRAPH_METRICS_ADDR":   ":9100",
				"FRAMEGRAPH_LOG_LEVEL":      "debug",
				"FRAMEGRAPH_WATCH_CONFIG":   "true",
				"FRAMEGRAPH_DISPLAY":        "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Senders:         4,
				FramesPerSender: 500,
				QueueCapacity:   16,
				TargetFPS:       29.97,
				SinkPolicy:      "none",
				StageCost:       3 * time.Millisecond,
				GateThreshold:   12,
				RateBufferSize:  64,
				PollTimeout:     20 * time.Millisecond,
				MetricsAddr:     ":9100",
				LogLevel:        "debug",
				WatchConfig:     true,
				Display:         true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"FRAMEGRAPH_SENDERS":    "4",
				"FRAMEGRAPH_TARGET_FPS": "10",
			},
			changed: map[string]bool{"senders": true},
			initial: Config{Senders: 2},
			expected: Config{
				Senders:   2,
				TargetFPS: 10,
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"FRAMEGRAPH_POLL_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"FRAMEGRAPH_SENDERS": "many",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid float",
			envVars: map[string]string{
				"FRAMEGRAPH_TARGET_FPS": "fast",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"FRAMEGRAPH_DISPLAY": "false",
			},
			changed:  map[string]bool{},
			initial:  Config{Display: true},
			expected: Config{Display: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
