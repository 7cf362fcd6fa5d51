// Package graph implements the unit graph: a tree of processing stages that
// negotiate their streams once and then push FrameSets synchronously from
// the roots to the leaves.
//
// # Lifecycle
//
// PrepareProcessing runs two negotiation passes over the tree of a root:
//
//  1. OpenStreams, root to leaves, depth-first. Each unit sees the streams
//     declared by its ancestors and may append its own. The first failure
//     aborts the pass.
//  2. OpenFeedbackStreams, over the whole tree, once every unit finished
//     pass 1. Units that were registered as feedback targets receive the
//     streams that will be fed back to them.
//
// Run then drives the root: its Processor's PostProcess is called until it
// returns nothing, and every FrameSet it returns is forwarded synchronously
// and depth-first to each child in registration order. Children in turn see
// ProcessFrame for every FrameSet and PostProcess once their parent is
// exhausted, so that buffering stages can flush.
//
// # Fatal conditions
//
// A unit that emits a FrameSet whose length differs from the number of
// streams it declared, or a pool that hears from a sender it never
// registered, panics with a *ContractError or *PoolError. Run, NextFrame,
// PipelineSource.Run and MultiSource.Run recover exactly these values and
// return them as errors. Any other panic is left alone.
//
// # Threads
//
// A tree is walked on one goroutine. PipelineSink and PipelineSource split
// a graph across two goroutines with a bounded queue between them, and Pool
// joins several independently driven trees.
package graph
