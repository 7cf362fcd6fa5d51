package ratewatcher

import "github.com/bft-labs/framegraph/pkg/runner"

// WithRateWatcher returns a runner Option that enables rate watching.
// When enabled, the plugin monitors the config file and applies a changed
// target_fps to the run's pipeline sources.
//
// Usage:
//
//	r, err := runner.New(
//	    runner.WithRoot(root),
//	    runner.WithPipelineSource(src),
//	    runner.WithConfigPath(path),
//	    ratewatcher.WithRateWatcher(ratewatcher.Config{
//	        DebounceDelay: 50 * time.Millisecond,
//	    }),
//	)
func WithRateWatcher(cfg Config) runner.Option {
	return runner.WithPlugin(New(cfg))
}

// WithDefaultRateWatcher returns a runner Option that enables rate watching
// with default settings (debounce 100ms, runner's config path).
func WithDefaultRateWatcher() runner.Option {
	return WithRateWatcher(DefaultConfig())
}
