package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FRAMEGRAPH_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("sink-policy", os.Getenv("FRAMEGRAPH_SINK_POLICY"), &cfg.SinkPolicy)
	s.setString("metrics-addr", os.Getenv("FRAMEGRAPH_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("FRAMEGRAPH_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("senders", os.Getenv("FRAMEGRAPH_SENDERS"), &cfg.Senders); err != nil {
		return err
	}
	if err := s.setIntFromString("frames", os.Getenv("FRAMEGRAPH_FRAMES"), &cfg.FramesPerSender); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", os.Getenv("FRAMEGRAPH_QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("rate-buffer", os.Getenv("FRAMEGRAPH_RATE_BUFFER"), &cfg.RateBufferSize); err != nil {
		return err
	}

	if err := s.setFloatFromString("target-fps", os.Getenv("FRAMEGRAPH_TARGET_FPS"), &cfg.TargetFPS); err != nil {
		return err
	}
	if err := s.setFloatFromString("gate-threshold", os.Getenv("FRAMEGRAPH_GATE_THRESHOLD"), &cfg.GateThreshold); err != nil {
		return err
	}

	if err := s.setDuration("poll-timeout", os.Getenv("FRAMEGRAPH_POLL_TIMEOUT"), &cfg.PollTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stage-cost", os.Getenv("FRAMEGRAPH_STAGE_COST"), &cfg.StageCost); err != nil {
		return err
	}

	s.setBoolFromString("watch-config", os.Getenv("FRAMEGRAPH_WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("display", os.Getenv("FRAMEGRAPH_DISPLAY"), &cfg.Display)

	return nil
}
