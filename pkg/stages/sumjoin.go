package stages

import (
	"fmt"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// SumJoin is a pool join that adds up one int64 stream of every sender, tick
// by tick, and emits the sums on a single output stream. Senders that ran
// out of ticks contribute nothing to later sums.
type SumJoin struct {
	input  string
	output string

	slots   []int
	senders int
	ticks   int
}

// NewSumJoin sums the stream named input of each sender onto output.
func NewSumJoin(input, output string) *SumJoin {
	return &SumJoin{input: input, output: output}
}

func (s *SumJoin) OpenPoolStreams(sets []frame.StreamSet) error {
	s.slots = make([]int, len(sets))
	for i, set := range sets {
		idx := set.IndexOf(s.input)
		if idx < 0 {
			return fmt.Errorf("sender %d: %w: %q", i, graph.ErrStreamNotFound, s.input)
		}
		s.slots[i] = idx
	}
	s.senders = len(sets)
	return nil
}

func (s *SumJoin) OpenRootStreams(set *frame.StreamSet) error {
	set.Append(frame.NewDataStream(s.output))
	return nil
}

func (s *SumJoin) Join(frames [][]frame.FrameSet, emit graph.Emitter) {
	ticks := 0
	for _, sender := range frames {
		ticks = max(ticks, len(sender))
	}
	for t := 0; t < ticks; t++ {
		var sum int64
		for id, sender := range frames {
			if t >= len(sender) {
				continue
			}
			if v, ok := frame.ValueOf[int64](sender[t][s.slots[id]]); ok {
				sum += v
			}
		}
		emit(frame.FrameSet{frame.NewValueFrame(sum)})
	}
	s.ticks = ticks
}

// Senders returns the number of senders seen at join time.
func (s *SumJoin) Senders() int { return s.senders }

// Ticks returns the number of sums emitted.
func (s *SumJoin) Ticks() int { return s.ticks }
