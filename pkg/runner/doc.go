// Package runner runs one or more prepared frame graphs as a managed unit.
//
// A Runner owns the goroutines of a graph run: one per root unit, one per
// MultiSource and one per PipelineSource. It negotiates every tree before
// anything starts, tags the run with a fresh run id and tracks it through the
// lifecycle states Stopped, Starting, Running, Stopping and Crashed.
//
// # Basic Usage
//
//	gen := stages.NewGenerator("value", 100)
//	root := graph.New(gen)
//	root.AddChild(graph.New(stages.NewRecorder()))
//
//	r, err := runner.New(runner.WithRoot(root), runner.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//	return r.Wait()
//
// # Pipelines
//
// Register every PipelineSource with [WithPipelineSource]. A source is
// negotiated together with the tree that holds its sink, so only roots go
// through [WithRoot]. When a worker fails, or the run is stopped, the runner
// marks every registered sink exhausted so the consumers drain and exit.
//
// # Arbiter
//
// If an arbiter is registered with [WithArbiter], [Runner.Wait] runs it on
// the calling goroutine, which is usually main. Build the arbiter on the same
// lifecycle manager passed to [WithLifecycle] so it exits as soon as the last
// worker finishes.
//
// # Plugins
//
// Plugins are initialized in registration order by [Runner.Start] and shut
// down in reverse order once the run ends.
package runner
