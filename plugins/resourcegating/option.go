package resourcegating

import "github.com/bft-labs/framegraph/pkg/runner"

// WithResourceGating returns a runner Option that enables resource gating.
//
// Usage:
//
//	r, err := runner.New(
//	    runner.WithRoot(root),
//	    runner.WithPipelineSource(src),
//	    resourcegating.WithResourceGating(resourcegating.Config{
//	        Threshold: 20,
//	        Factor:    0.25,
//	    }),
//	)
func WithResourceGating(cfg Config) runner.Option {
	return runner.WithPlugin(New(cfg))
}

// WithDefaultResourceGating returns a runner Option that enables resource
// gating with default settings (10 goroutines per CPU, half rate).
func WithDefaultResourceGating() runner.Option {
	return WithResourceGating(DefaultConfig())
}
