package graph

import (
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
)

// Processor is the behavior of a unit.
//
// OpenStreams is called once per negotiation with the streams declared by the
// unit's ancestors; it may append streams but must not remove any. Every
// FrameSet returned afterwards from ProcessFrame or PostProcess must hold
// exactly one slot per stream in the set as OpenStreams left it.
//
// ProcessFrame is called for each FrameSet the parent emits. PostProcess is
// called repeatedly until it returns nothing: on a root it produces the
// input of the whole tree, on any other unit it flushes buffered output once
// the parent is exhausted.
type Processor interface {
	OpenStreams(set *frame.StreamSet) error
	ProcessFrame(in frame.FrameSet) []frame.FrameSet
	PostProcess() []frame.FrameSet
}

// FeedbackOpener is implemented by processors that consume feedback streams.
// It is only called when at least one feedback stream targets the unit.
type FeedbackOpener interface {
	OpenFeedbackStreams(set frame.StreamSet) error
}

// FeedbackProcessor is called instead of ProcessFrame when feedback streams
// target the unit. feedback holds one slot per feedback stream; a slot is nil
// when its producer emitted nothing during the previous tick.
type FeedbackProcessor interface {
	ProcessFrameWithFeedback(in, feedback frame.FrameSet) []frame.FrameSet
}

// Seeker decides whether a seek changed the processor's position. Children
// are only seeked when it returns true. Processors without Seek count as changed.
type Seeker interface {
	Seek(t time.Duration) bool
}

// RateAdjuster reacts to a rate request travelling towards the root and
// returns the rate to pass on to the parent.
type RateAdjuster interface {
	AdjustRate(fps float64) float64
}

// Binder is implemented by processors that need their unit, for example to
// call AdjustRate or to register feedback. Bind is called by New.
type Binder interface {
	Bind(u *Unit)
}

// BaseProcessor provides the default behavior: no streams, pass every
// FrameSet through unchanged, nothing to flush. Embed it and override what
// you need.
type BaseProcessor struct {
	unit *Unit
}

func (b *BaseProcessor) Bind(u *Unit) { b.unit = u }

// Unit returns the unit the processor is bound to.
func (b *BaseProcessor) Unit() *Unit { return b.unit }

func (b *BaseProcessor) OpenStreams(*frame.StreamSet) error { return nil }

func (b *BaseProcessor) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	return []frame.FrameSet{in}
}

func (b *BaseProcessor) PostProcess() []frame.FrameSet { return nil }
