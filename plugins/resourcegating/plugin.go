// Package resourcegating slows a framegraph run down while the process is
// under heavy load. When enabled, it samples the load periodically and, above
// the threshold, scales the target rate of every pipeline source down until
// the load drops again.
package resourcegating

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/runner"
)

// LoadFunc reports the current load; the gate closes above the threshold.
type LoadFunc func() float64

// GoroutineLoad is the default load: goroutines per CPU.
func GoroutineLoad() float64 {
	return float64(runtime.NumGoroutine()) / float64(runtime.NumCPU())
}

// Plugin implements resource gating functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	interval  time.Duration
	threshold float64
	factor    float64
	load      LoadFunc

	// Runtime state
	sources []*graph.PipelineSource
	saved   []float64
	gated   bool
	logger  log.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// Interval is the time between two load samples.
	// Default: 1 second
	Interval time.Duration

	// Threshold is the load above which sources are slowed down.
	// Default: 10 (goroutines per CPU)
	Threshold float64

	// Factor scales the target rate while gated.
	// Default: 0.5
	Factor float64

	// Load samples the load. Default: GoroutineLoad
	Load LoadFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:  time.Second,
		Threshold: 10,
		Factor:    0.5,
		Load:      GoroutineLoad,
	}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	if cfg.Factor <= 0 || cfg.Factor >= 1 {
		cfg.Factor = 0.5
	}
	if cfg.Load == nil {
		cfg.Load = GoroutineLoad
	}

	return &Plugin{
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		factor:    cfg.Factor,
		load:      cfg.Load,
		logger:    log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize starts sampling the load.
func (p *Plugin) Initialize(ctx context.Context, cfg runner.PluginConfig) error {
	p.mu.Lock()
	p.sources = cfg.Sources
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	p.mu.Unlock()

	if len(cfg.Sources) == 0 {
		p.logger.Warn("resource gating disabled: no pipeline sources")
		return nil
	}

	gateCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("resource gating plugin initialized",
		log.Float64("threshold", p.threshold),
		log.Duration("interval", p.interval),
	)

	p.wg.Add(1)
	go p.sampleLoop(gateCtx)
	return nil
}

// Shutdown stops sampling and restores the rates of a closed gate.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.open()
	return nil
}

// Gated reports whether the sources are currently slowed down.
func (p *Plugin) Gated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gated
}

func (p *Plugin) sampleLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check()
		}
	}
}

// check samples the load once and opens or closes the gate.
func (p *Plugin) check() {
	load := p.load()
	if load > p.threshold {
		p.close(load)
	} else {
		p.open()
	}
}

func (p *Plugin) close(load float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gated {
		return
	}

	p.saved = make([]float64, len(p.sources))
	for i, s := range p.sources {
		p.saved[i] = s.TargetRate()
		rate := p.saved[i]
		if rate <= 0 {
			// Unthrottled: slow down from what it actually achieves.
			rate = s.Unit().CurrentRate()
		}
		if rate > 0 {
			s.SetTargetRate(rate * p.factor)
		}
	}
	p.gated = true
	p.logger.Warn("resource gate closed", log.Float64("load", load))
}

func (p *Plugin) open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gated {
		return
	}

	for i, s := range p.sources {
		s.SetTargetRate(p.saved[i])
	}
	p.saved = nil
	p.gated = false
	p.logger.Info("resource gate opened")
}

// Ensure Plugin implements runner.Plugin.
var _ runner.Plugin = (*Plugin)(nil)
