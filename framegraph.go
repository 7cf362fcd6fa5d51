// Package framegraph is a frame-processing pipeline framework: processing
// units arranged in trees negotiate the streams they carry, then push
// FrameSets from root to leaves, with feedback loops, pipeline queues
// between goroutines, pools joining several trees and rate control flowing
// back upstream.
//
// Example usage:
//
//	root := framegraph.NewUnit(stages.NewGenerator("value", 100))
//	root.AddChild(framegraph.NewUnit(stages.NewRecorder()))
//	if err := framegraph.Run(context.Background(), root); err != nil {
//	    log.Fatal(err)
//	}
//
// The building blocks live in pkg/frame, pkg/graph, pkg/queue, pkg/arbiter
// and pkg/runner; this package re-exports the common entry points.
package framegraph

import (
	"context"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/runner"
)

// Unit is a node of a processing tree.
type Unit = graph.Unit

// Processor is the per-unit computation.
type Processor = graph.Processor

// FrameSet is one tick of frames, one per negotiated stream.
type FrameSet = frame.FrameSet

// StreamSet is the ordered list of streams a unit carries.
type StreamSet = frame.StreamSet

// NewUnit wraps p in a unit.
func NewUnit(p Processor, opts ...graph.Option) *Unit {
	return graph.New(p, opts...)
}

// Run prepares and drives the given roots concurrently, one goroutine each,
// and blocks until they finish or ctx is done.
func Run(ctx context.Context, roots ...*Unit) error {
	opts := make([]runner.Option, 0, len(roots))
	for _, r := range roots {
		opts = append(opts, runner.WithRoot(r))
	}
	r, err := runner.New(opts...)
	if err != nil {
		return err
	}
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}
