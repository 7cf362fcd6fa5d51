// Package arbiter runs commands on one designated goroutine on behalf of any
// number of callers, for resources that must only be touched from a single
// goroutine (a display connection, a capture device, a non thread-safe C
// library).
//
// Callers block in Do or Call until their command has executed. The arbiter
// goroutine runs Run; it exits when Stop is called, when its context ends or
// once every worker known to its WorkerTracker has finished.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/framegraph/pkg/lifecycle"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/queue"
)

// ErrStopped is returned for commands submitted to a stopped arbiter.
var ErrStopped = errors.New("arbiter stopped")

// DefaultPollTimeout is how long Run waits for a command before checking
// whether it should exit.
const DefaultPollTimeout = 10 * time.Millisecond

// command is one queued call. The caller waits on cond until executed flips.
type command struct {
	fn func()

	mu       sync.Mutex
	cond     *sync.Cond
	executed bool
	err      error
}

func newCommand(fn func()) *command {
	c := &command{fn: fn}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *command) finish(err error) {
	c.mu.Lock()
	c.executed = true
	c.err = err
	c.mu.Unlock()
	c.cond.Signal()
}

func (c *command) wait() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.executed {
		c.cond.Wait()
	}
	return c.err
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Arbiter) {
		a.logger = log.OrNoop(logger)
	}
}

// WithPollTimeout sets how long Run waits for a command while idle.
func WithPollTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.pollTimeout = d
		}
	}
}

// Arbiter executes submitted commands one at a time on the goroutine that
// calls Run.
type Arbiter struct {
	commands    *queue.Queue[*command]
	workers     lifecycle.WorkerTracker
	pollTimeout time.Duration
	logger      log.Logger

	mu       sync.Mutex
	stopped  bool
	executed int
}

// New creates an arbiter that exits once workers reports that all workers
// are done. workers may be nil, in which case only Stop or the context end
// the run.
func New(workers lifecycle.WorkerTracker, opts ...Option) *Arbiter {
	a := &Arbiter{
		commands:    queue.New[*command](),
		workers:     workers,
		pollTimeout: DefaultPollTimeout,
		logger:      log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Do runs fn on the arbiter goroutine and waits for it to finish. A panic in
// fn is returned as an error to the caller.
func (a *Arbiter) Do(fn func()) error {
	cmd := newCommand(fn)

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrStopped
	}
	a.commands.Push(cmd)
	a.mu.Unlock()

	return cmd.wait()
}

// Call runs fn on the arbiter goroutine and returns its result.
func Call[T any](a *Arbiter, fn func() T) (T, error) {
	var result T
	err := a.Do(func() { result = fn() })
	return result, err
}

// Stop makes Run return once the commands already queued are handled.
func (a *Arbiter) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

// Stopped reports whether the arbiter accepts no more commands.
func (a *Arbiter) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Executed returns the number of commands run so far.
func (a *Arbiter) Executed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executed
}

// Run executes commands until the arbiter is stopped, ctx is done or all
// workers finished. Commands queued before that point still run; later
// submissions fail with ErrStopped.
func (a *Arbiter) Run(ctx context.Context) {
	a.logger.Info("arbiter started")
	for {
		if cmd, ok := a.commands.TimedWaitPop(a.pollTimeout); ok {
			a.execute(cmd)
			continue
		}
		if a.shouldExit(ctx) {
			break
		}
	}

	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	// Nothing can be queued any more; run what made it in before the stop.
	for {
		cmd, ok := a.commands.TryPop()
		if !ok {
			break
		}
		a.execute(cmd)
	}
	a.logger.Info("arbiter finished", log.Int("commands", a.Executed()))
}

func (a *Arbiter) shouldExit(ctx context.Context) bool {
	if a.Stopped() {
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	return a.workers != nil && a.workers.WorkersDone()
}

func (a *Arbiter) execute(cmd *command) {
	err := a.safeRun(cmd.fn)
	a.mu.Lock()
	a.executed++
	a.mu.Unlock()
	cmd.finish(err)
}

func (a *Arbiter) safeRun(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("arbiter command panicked: %v", r)
			a.logger.Error("command panicked", log.Err(err))
		}
	}()
	fn()
	return nil
}
