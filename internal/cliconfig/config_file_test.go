package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Senders:         3,
				FramesPerSender: 50,
				QueueCapacity:   4,
				TargetFPS:       25,
				SinkPolicy:      "adjust",
				StageCost:       "1ms",
				GateThreshold:   20,
				RateBufferSize:  16,
				PollTimeout:     "10ms",
				MetricsAddr:     "127.0.0.1:9100",
				LogLevel:        "warn",
				WatchConfig:     &trueVal,
				Display:         &trueVal,
			},
			changed: map[string]bool{},
			expected: Config{
				Senders:         3,
				FramesPerSender: 50,
				QueueCapacity:   4,
				TargetFPS:       25,
				SinkPolicy:      "adjust",
				StageCost:       time.Millisecond,
				GateThreshold:   20,
				RateBufferSize:  16,
				PollTimeout:     10 * time.Millisecond,
				MetricsAddr:     "127.0.0.1:9100",
				LogLevel:        "warn",
				WatchConfig:     true,
				Display:         true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Senders:   8,
				TargetFPS: 30,
			},
			changed: map[string]bool{"target-fps": true},
			initial: Config{Senders: 2, TargetFPS: 60},
			expected: Config{
				Senders:   8,
				TargetFPS: 60, // unchanged because flag was set
			},
		},
		{
			name:       "zero values leave defaults alone",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{Senders: 2, QueueCapacity: 8},
			expected:   Config{Senders: 2, QueueCapacity: 8},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{StageCost: "slow"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
senders = 3
target_fps = 24.5
sink_policy = "none"
poll_timeout = "7ms"
watch_config = true
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
senders: 3
target_fps: 24.5
sink_policy: none
poll_timeout: 7ms
watch_config: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			fc, err := LoadFileConfig(path)
			if err != nil {
				t.Fatalf("LoadFileConfig() error = %v", err)
			}
			if fc.Senders != 3 {
				t.Errorf("Senders = %v, want 3", fc.Senders)
			}
			if fc.TargetFPS != 24.5 {
				t.Errorf("TargetFPS = %v, want 24.5", fc.TargetFPS)
			}
			if fc.SinkPolicy != "none" {
				t.Errorf("SinkPolicy = %v, want none", fc.SinkPolicy)
			}
			if fc.PollTimeout != "7ms" {
				t.Errorf("PollTimeout = %v, want 7ms", fc.PollTimeout)
			}
			if fc.WatchConfig == nil || !*fc.WatchConfig {
				t.Errorf("WatchConfig = %v, want true", fc.WatchConfig)
			}
		})
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFileConfig() on a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("senders = ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("LoadFileConfig() on invalid TOML should fail")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() true before the file was written")
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() false for an existing file")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got, want := DefaultConfigPath(), filepath.Join("/home/tester", ".framegraph", "config.toml"); got != want {
		t.Errorf("DefaultConfigPath() = %v, want %v", got, want)
	}
}
