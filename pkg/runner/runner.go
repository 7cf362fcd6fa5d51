package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/lifecycle"
	"github.com/bft-labs/framegraph/pkg/log"
)

// ErrNoRoots is returned by New when nothing was registered to run.
var ErrNoRoots = errors.New("no roots registered")

// Runner drives the goroutines of a graph run.
type Runner struct {
	opts      options
	lifecycle *lifecycle.DefaultManager
	baseLog   log.Logger

	mu     sync.Mutex
	logger log.Logger
	runID  string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
	result error
}

// New creates a Runner in StateStopped. Call Start to run it.
func New(opts ...Option) (*Runner, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.roots) == 0 && len(o.multis) == 0 {
		return nil, ErrNoRoots
	}

	logger := log.OrNoop(o.logger)
	manager := o.lifecycle
	if manager == nil {
		manager = lifecycle.NewManager(logger, nil)
	}

	return &Runner{
		opts:      o,
		lifecycle: manager,
		baseLog:   logger,
		logger:    logger,
	}, nil
}

// Start prepares every registered tree, initializes the plugins and starts
// the workers. It returns once everything is running; use Wait to block
// until the run ends. Nothing runs if a tree fails to negotiate.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStart() {
		return lifecycle.ErrAlreadyRunning
	}

	r.runID = uuid.NewString()
	r.logger = r.baseLog.With(log.String("run_id", r.runID))
	r.once = sync.Once{}
	r.result = nil
	r.err = nil

	if err := r.transition(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	if err := r.prepare(); err != nil {
		r.logger.Error("preparation failed", log.Err(err))
		_ = r.transition(lifecycle.StateCrashed, "preparation failed")
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lifecycle.SetCancel(cancel)

	if err := r.initPlugins(runCtx); err != nil {
		cancel()
		_ = r.transition(lifecycle.StateCrashed, "plugin init failed")
		return err
	}

	if err := r.transition(lifecycle.StateRunning, "workers starting"); err != nil {
		cancel()
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, u := range r.opts.roots {
		u := u
		r.spawn(g, u.Name(), func() error { return runRoot(gctx, u) })
	}
	for i, m := range r.opts.multis {
		m := m
		r.spawn(g, fmt.Sprintf("multi-source-%d", i), func() error { return m.RunContext(gctx) })
	}
	for _, s := range r.opts.sources {
		s := s
		r.spawn(g, s.Unit().Name(), s.Run)
	}

	done := make(chan struct{})
	r.done = done
	arb := r.opts.arbiter
	go func() {
		err := g.Wait()
		if arb != nil {
			arb.Stop()
		}
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(done)
	}()

	r.logger.Info("run started",
		log.Int("roots", len(r.opts.roots)),
		log.Int("multi_sources", len(r.opts.multis)),
		log.Int("pipeline_sources", len(r.opts.sources)),
	)
	return nil
}

// prepare negotiates every tree and checks that each pipeline source was
// reached by one of them.
func (r *Runner) prepare() error {
	for _, u := range r.opts.roots {
		if err := u.PrepareProcessing(); err != nil {
			return fmt.Errorf("prepare %s: %w", u.Name(), err)
		}
	}
	for _, m := range r.opts.multis {
		if err := m.Prepare(); err != nil {
			return err
		}
	}
	for _, s := range r.opts.sources {
		if !s.Unit().Prepared() {
			return fmt.Errorf("%w: pipeline source %s is not fed by a registered root",
				graph.ErrNotPrepared, s.Unit().Name())
		}
	}
	return nil
}

func (r *Runner) initPlugins(ctx context.Context) error {
	cfg := PluginConfig{
		RunID:      r.runID,
		ConfigPath: r.opts.configPath,
		Sources:    append([]*graph.PipelineSource(nil), r.opts.sources...),
		Logger:     r.logger,
	}
	for i, p := range r.opts.plugins {
		if err := p.Initialize(ctx, cfg); err != nil {
			r.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			r.shutdownPlugins(r.opts.plugins[:i])
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		r.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}
	return nil
}

func (r *Runner) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// spawn runs fn as a tracked worker of the group.
func (r *Runner) spawn(g *errgroup.Group, name string, fn func() error) {
	r.lifecycle.AddWorker()
	logger := r.logger
	runID := r.runID
	g.Go(func() error {
		defer r.lifecycle.WorkerDone()

		start := time.Now()
		err := fn()
		if err != nil {
			// Consumers of a failed or stopped producer would wait forever.
			r.exhaustSinks()
		}

		switch {
		case err == nil:
			logger.Info("worker finished", log.String("worker", name), log.Duration("took", time.Since(start)))
		case errors.Is(err, context.Canceled):
			logger.Info("worker stopped", log.String("worker", name))
		default:
			logger.Error("worker failed", log.String("worker", name), log.Err(err))
		}
		if h := r.opts.eventHandler; h != nil {
			h.OnWorkerDone(WorkerDoneEvent{
				RunID:    runID,
				Worker:   name,
				Duration: time.Since(start),
				Err:      err,
			})
		}

		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

func (r *Runner) exhaustSinks() {
	for _, s := range r.opts.sources {
		s.Sink().MarkExhausted()
	}
}

// runRoot advances u one frame at a time until it is exhausted or ctx ends.
func runRoot(ctx context.Context, u *graph.Unit) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := u.NextFrame()
		if err != nil || !more {
			return err
		}
	}
}

// Wait blocks until every worker returned, running the arbiter on the
// calling goroutine if one was registered. It returns the first worker
// failure, nil if the run completed or was stopped.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return lifecycle.ErrNotRunning
	}

	if arb := r.opts.arbiter; arb != nil {
		arb.Run(context.Background())
	}
	<-done

	r.once.Do(r.finish)
	return r.result
}

// finish ends the run once all workers returned.
func (r *Runner) finish() {
	r.mu.Lock()
	err := r.err
	cancel := r.cancel
	r.mu.Unlock()

	if r.lifecycle.State() == lifecycle.StateRunning {
		_ = r.transition(lifecycle.StateStopping, "workers finished")
	}
	if cancel != nil {
		cancel()
	}
	r.shutdownPlugins(r.opts.plugins)

	if err != nil && errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		_ = r.transition(lifecycle.StateCrashed, err.Error())
	} else {
		_ = r.transition(lifecycle.StateStopped, "run complete")
	}
	r.result = err
}

// Stop asks every worker to return after its current frame. Pipeline sources
// still drain what is already queued. Stop does not wait; call Wait.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStop() {
		return lifecycle.ErrNotRunning
	}
	if err := r.transition(lifecycle.StateStopping, "Stop() called"); err != nil {
		return err
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (r *Runner) Status() lifecycle.State {
	return r.lifecycle.State()
}

// RunID returns the id of the current or last run, empty before Start.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Workers returns the tracker of the run's workers.
func (r *Runner) Workers() lifecycle.WorkerTracker {
	return r.lifecycle
}

func (r *Runner) transition(to lifecycle.State, reason string) error {
	from := r.lifecycle.State()
	if err := r.lifecycle.TransitionTo(to, reason); err != nil {
		return err
	}
	if h := r.opts.eventHandler; h != nil {
		h.OnStateChange(StateChangeEvent{
			RunID:    r.runID,
			Previous: from,
			Current:  to,
			Reason:   reason,
		})
	}
	return nil
}
