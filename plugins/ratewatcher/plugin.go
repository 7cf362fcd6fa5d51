// Package ratewatcher provides config file monitoring for framegraph runs.
// When enabled, it watches the run's config file and applies a changed
// target_fps to every pipeline source of the run while it keeps going.
package ratewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/framegraph/internal/cliconfig"
	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/runner"
)

// Plugin implements rate watching.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	path          string

	// Runtime state
	sources  []*graph.PipelineSource
	logger   log.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	applied  int
	lastFPS  float64
}

// Config holds configuration options for the rate watcher plugin.
type Config struct {
	// Path is the file to watch. If empty, the runner's config path is used.
	Path string

	// DebounceDelay is the delay to wait after a file change before reading it.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new rate watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		path:          cfg.Path,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "ratewatcher"
}

// Initialize starts watching the config file. The watch is set up before
// Initialize returns, so later writes are never missed.
func (p *Plugin) Initialize(ctx context.Context, cfg runner.PluginConfig) error {
	p.mu.Lock()
	if p.path == "" {
		p.path = cfg.ConfigPath
	}
	p.sources = cfg.Sources
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	path := p.path
	p.mu.Unlock()

	if path == "" || len(cfg.Sources) == 0 {
		p.logger.Warn("rate watcher disabled: no config path or no pipeline sources")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	p.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("rate watcher initialized", log.String("path", path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Applied returns the number of rate changes applied so far.
func (p *Plugin) Applied() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceApply(ctx)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.apply()
	})
}

// apply re-reads the file and pushes a changed, positive target_fps to
// every source. Unreadable files keep the current rate.
func (p *Plugin) apply() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed, keeping rate", log.Err(err))
		return
	}
	if fc.TargetFPS <= 0 {
		return
	}

	p.mu.Lock()
	if fc.TargetFPS == p.lastFPS {
		p.mu.Unlock()
		return
	}
	p.lastFPS = fc.TargetFPS
	p.applied++
	sources := p.sources
	p.mu.Unlock()

	for _, s := range sources {
		s.SetTargetRate(fc.TargetFPS)
	}
	p.logger.Info("target rate updated",
		log.Float64("fps", fc.TargetFPS),
		log.Int("sources", len(sources)),
	)
}

// Ensure Plugin implements runner.Plugin.
var _ runner.Plugin = (*Plugin)(nil)
