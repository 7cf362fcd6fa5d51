package stages

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// Generator is a root that emits Count FrameSets with one int64 stream,
// holding Start, Start+Step, ... It paces itself when a rate is set, either
// up front or through AdjustRate from downstream.
type Generator struct {
	graph.BaseProcessor

	stream string
	start  int64
	step   int64
	count  int

	emitted int
	fps     atomic.Uint64 // math.Float64bits
	last    time.Time
}

// NewGenerator returns a generator for count values on stream.
func NewGenerator(stream string, count int) *Generator {
	return &Generator{stream: stream, step: 1, count: count}
}

// WithStart sets the first value.
func (g *Generator) WithStart(v int64) *Generator {
	g.start = v
	return g
}

// WithStep sets the distance between values.
func (g *Generator) WithStep(v int64) *Generator {
	g.step = v
	return g
}

// SetRate limits emission to fps frames per second; 0 removes the limit.
func (g *Generator) SetRate(fps float64) {
	g.fps.Store(math.Float64bits(math.Max(fps, 0)))
}

// Rate returns the current limit.
func (g *Generator) Rate() float64 {
	return math.Float64frombits(g.fps.Load())
}

// Emitted returns how many FrameSets were produced.
func (g *Generator) Emitted() int { return g.emitted }

func (g *Generator) OpenStreams(set *frame.StreamSet) error {
	set.Append(frame.NewDataStream(g.stream))
	return nil
}

func (g *Generator) PostProcess() []frame.FrameSet {
	if g.emitted >= g.count {
		return nil
	}
	if fps := g.Rate(); fps > 0 && !g.last.IsZero() {
		interval := time.Duration(float64(time.Second) / fps)
		if wait := interval - time.Since(g.last); wait > 0 {
			time.Sleep(wait)
		}
	}
	g.last = time.Now()

	v := g.start + int64(g.emitted)*g.step
	g.emitted++
	return []frame.FrameSet{{frame.NewValueFrame(v)}}
}

// AdjustRate takes the requested rate as the new limit.
func (g *Generator) AdjustRate(fps float64) float64 {
	g.SetRate(fps)
	return fps
}

// Seek restarts the sequence at the value closest to t, treating each value
// as one frame at the current rate. It always reports a change.
func (g *Generator) Seek(t time.Duration) bool {
	fps := g.Rate()
	if fps <= 0 {
		g.emitted = 0
		return true
	}
	g.emitted = min(int(t.Seconds()*fps), g.count)
	return true
}
