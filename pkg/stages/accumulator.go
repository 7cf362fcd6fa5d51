package stages

import (
	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// Accumulator keeps a running total of an int64 input stream. The total is
// fed back into the unit itself, so each tick adds its input to the value
// emitted on the previous tick.
type Accumulator struct {
	graph.BaseProcessor

	input  string
	output string
	slot   int
}

// NewAccumulator sums input into output.
func NewAccumulator(input, output string) *Accumulator {
	return &Accumulator{input: input, output: output, slot: -1}
}

// Bind registers the feedback loop on the accumulator's own unit.
func (a *Accumulator) Bind(u *graph.Unit) {
	a.BaseProcessor.Bind(u)
	u.FeedbackResult(u, a.output)
}

func (a *Accumulator) OpenStreams(set *frame.StreamSet) error {
	a.slot = set.IndexOf(a.input)
	if a.slot < 0 {
		return graph.ErrStreamNotFound
	}
	set.Append(frame.NewDataStream(a.output))
	return nil
}

func (a *Accumulator) ProcessFrameWithFeedback(in, feedback frame.FrameSet) []frame.FrameSet {
	v, _ := frame.ValueOf[int64](in[a.slot])
	prev, _ := frame.ValueOf[int64](feedback[0])
	return []frame.FrameSet{in.With(frame.NewValueFrame(prev + v))}
}
