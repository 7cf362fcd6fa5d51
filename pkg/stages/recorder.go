package stages

import (
	"sync"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/graph"
)

// Recorder passes FrameSets through and keeps a copy of each. It is safe to
// read from other goroutines while the graph runs.
type Recorder struct {
	graph.BaseProcessor

	mu      sync.Mutex
	streams []string
	sets    []frame.FrameSet
	flushed bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) OpenStreams(set *frame.StreamSet) error {
	r.mu.Lock()
	r.streams = set.Names()
	r.mu.Unlock()
	return nil
}

func (r *Recorder) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	r.mu.Lock()
	r.sets = append(r.sets, in.Clone())
	r.mu.Unlock()
	return []frame.FrameSet{in}
}

func (r *Recorder) PostProcess() []frame.FrameSet {
	r.mu.Lock()
	r.flushed = true
	r.mu.Unlock()
	return nil
}

// Streams returns the stream names seen during negotiation.
func (r *Recorder) Streams() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.streams...)
}

// Snapshot returns the FrameSets recorded so far.
func (r *Recorder) Snapshot() []frame.FrameSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.FrameSet(nil), r.sets...)
}

// Len returns the number of recorded FrameSets.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// Flushed reports whether the parent finished.
func (r *Recorder) Flushed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed
}

// Int64s returns the int64 values recorded on stream, skipping FrameSets
// where the slot is empty or of another type.
func (r *Recorder) Int64s(stream string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, name := range r.streams {
		if name == stream {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []int64
	for _, s := range r.sets {
		if v, ok := frame.ValueOf[int64](s[idx]); ok {
			out = append(out, v)
		}
	}
	return out
}
