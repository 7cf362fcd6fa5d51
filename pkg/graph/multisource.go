package graph

import (
	"context"
	"fmt"

	"github.com/bft-labs/framegraph/pkg/log"
)

// PullMethod decides the order in which a MultiSource drives its roots.
type PullMethod int

const (
	// RoundRobin advances every root by one frame in turn.
	RoundRobin PullMethod = iota
	// DrainSource runs each root to exhaustion before starting the next.
	DrainSource
)

func (m PullMethod) String() string {
	if m == DrainSource {
		return "drain"
	}
	return "round-robin"
}

// MultiSource drives several roots from one goroutine, typically the
// senders of a Pool.
type MultiSource struct {
	method PullMethod
	roots  []*Unit
	logger log.Logger
}

// NewMultiSource returns an empty MultiSource.
func NewMultiSource(method PullMethod, logger log.Logger) *MultiSource {
	return &MultiSource{method: method, logger: log.OrNoop(logger)}
}

// AddSource registers a root.
func (m *MultiSource) AddSource(u *Unit) {
	m.roots = append(m.roots, u)
}

// Sources returns the registered roots.
func (m *MultiSource) Sources() []*Unit {
	return append([]*Unit(nil), m.roots...)
}

// Prepare negotiates every root, stopping at the first failure.
func (m *MultiSource) Prepare() error {
	for _, u := range m.roots {
		if err := u.PrepareProcessing(); err != nil {
			return fmt.Errorf("prepare %s: %w", u.name, err)
		}
	}
	return nil
}

// Run prepares every root and drives them until all are exhausted.
func (m *MultiSource) Run() error {
	if err := m.Prepare(); err != nil {
		return err
	}
	return m.RunPrepared()
}

// RunPrepared drives roots that were already prepared.
func (m *MultiSource) RunPrepared() error {
	return m.RunContext(context.Background())
}

// RunContext drives prepared roots like RunPrepared and stops between two
// frames once ctx is done, returning ctx.Err(). Roots cut short this way are
// not flushed.
func (m *MultiSource) RunContext(ctx context.Context) error {
	m.logger.Info("multi source started",
		log.String("method", m.method.String()),
		log.Int("sources", len(m.roots)),
	)

	if m.method == DrainSource {
		for _, u := range m.roots {
			if err := drain(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}

	done := make([]bool, len(m.roots))
	for remaining := len(m.roots); remaining > 0; {
		for i, u := range m.roots {
			if done[i] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			more, err := u.NextFrame()
			if err != nil {
				return fmt.Errorf("source %s: %w", u.name, err)
			}
			if !more {
				done[i] = true
				remaining--
			}
		}
	}
	return nil
}

func drain(ctx context.Context, u *Unit) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := u.NextFrame()
		if err != nil {
			return fmt.Errorf("source %s: %w", u.name, err)
		}
		if !more {
			return nil
		}
	}
}
