package runner

import (
	"github.com/bft-labs/framegraph/pkg/arbiter"
	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/lifecycle"
	"github.com/bft-labs/framegraph/pkg/log"
)

// Option configures a Runner.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	lifecycle    *lifecycle.DefaultManager
	arbiter      *arbiter.Arbiter
	configPath   string

	roots   []*graph.Unit
	multis  []*graph.MultiSource
	sources []*graph.PipelineSource
	plugins []Plugin
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRoot registers a root unit. It is prepared by Start and driven frame by
// frame on its own goroutine.
func WithRoot(u *graph.Unit) Option {
	return func(o *options) {
		o.roots = append(o.roots, u)
	}
}

// WithMultiSource registers a MultiSource. All its roots are prepared by Start
// and driven from a single goroutine.
func WithMultiSource(m *graph.MultiSource) Option {
	return func(o *options) {
		o.multis = append(o.multis, m)
	}
}

// WithPipelineSource registers a PipelineSource to run on its own goroutine.
// The tree holding its sink must be registered as a root or a MultiSource.
func WithPipelineSource(s *graph.PipelineSource) Option {
	return func(o *options) {
		o.sources = append(o.sources, s)
	}
}

// WithArbiter makes Wait run arb on the calling goroutine.
func WithArbiter(arb *arbiter.Arbiter) Option {
	return func(o *options) {
		o.arbiter = arb
	}
}

// WithLifecycle sets the lifecycle manager that tracks the run's workers.
// Share it with arbiter.New so the arbiter notices when the workers are done.
func WithLifecycle(m *lifecycle.DefaultManager) Option {
	return func(o *options) {
		o.lifecycle = m
	}
}

// WithConfigPath records the configuration file the run was built from. It
// is handed to plugins.
func WithConfigPath(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithEventHandler sets a handler for runner events.
// Events are called synchronously; implementations should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the runner starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
