package stages

import (
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// Throttle simulates an expensive stage: it spends Cost on every FrameSet
// and, every Every frames, asks upstream to slow down to the rate it can
// actually sustain.
type Throttle struct {
	graph.BaseProcessor

	cost  time.Duration
	every int
	seen  int
}

// NewThrottle returns a throttle spending cost per frame and reporting its
// rate every frames; every <= 0 disables the reports.
func NewThrottle(cost time.Duration, every int) *Throttle {
	return &Throttle{cost: cost, every: every}
}

func (t *Throttle) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	time.Sleep(t.cost)
	t.seen++
	if t.every > 0 && t.seen%t.every == 0 {
		if fps := t.Unit().UnitRate(); fps > 0 {
			t.Unit().AdjustRate(fps)
		}
	}
	return []frame.FrameSet{in}
}
