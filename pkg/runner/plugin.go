package runner

import (
	"context"

	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/log"
)

// Plugin extends a run with work that lives as long as the run does.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called by Start before any worker runs. Returning an
	// error aborts the start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called once the run ended.
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to know about the run.
type PluginConfig struct {
	// RunID identifies the run in logs.
	RunID string

	// ConfigPath is the configuration file set with WithConfigPath, if any.
	ConfigPath string

	// Sources are the registered pipeline sources. Their target rate may be
	// changed from any goroutine.
	Sources []*graph.PipelineSource

	Logger log.Logger
}

// BasePlugin provides no-op Initialize and Shutdown for embedding.
type BasePlugin struct{}

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }
