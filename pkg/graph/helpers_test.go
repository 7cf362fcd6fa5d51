package graph

import (
	"fmt"
	"sync"

	"github.com/bft-labs/framegraph/pkg/frame"
)

// events is a goroutine-safe ordered log shared by test processors.
type events struct {
	mu    sync.Mutex
	lines []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	e.lines = append(e.lines, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lines...)
}

// counter is a root emitting n single-stream FrameSets holding 0..n-1.
type counter struct {
	BaseProcessor
	stream   string
	n, next  int
	adjusted []float64
}

func newCounter(stream string, n int) *counter {
	return &counter{stream: stream, n: n}
}

func (c *counter) OpenStreams(set *frame.StreamSet) error {
	set.Append(frame.NewDataStream(c.stream))
	return nil
}

func (c *counter) PostProcess() []frame.FrameSet {
	if c.next >= c.n {
		return nil
	}
	v := int64(c.next)
	c.next++
	return []frame.FrameSet{{frame.NewValueFrame(v)}}
}

func (c *counter) AdjustRate(fps float64) float64 {
	c.adjusted = append(c.adjusted, fps)
	return fps
}

// recorder passes FrameSets through and logs the value in slot 0.
type recorder struct {
	BaseProcessor
	label   string
	log     *events
	streams []string
	sets    []frame.FrameSet
	flushes int
}

func newRecorder(label string, log *events) *recorder {
	return &recorder{label: label, log: log}
}

func (r *recorder) OpenStreams(set *frame.StreamSet) error {
	r.streams = set.Names()
	return nil
}

func (r *recorder) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	r.sets = append(r.sets, in)
	if r.log != nil {
		v, _ := frame.ValueOf[int64](in[0])
		r.log.add("%s:%d", r.label, v)
	}
	return []frame.FrameSet{in}
}

func (r *recorder) PostProcess() []frame.FrameSet {
	r.flushes++
	return nil
}

func (r *recorder) values() []int64 {
	out := make([]int64, 0, len(r.sets))
	for _, s := range r.sets {
		v, _ := frame.ValueOf[int64](s[0])
		out = append(out, v)
	}
	return out
}

// appender adds one stream and fills it with the value of slot 0 times factor.
type appender struct {
	BaseProcessor
	stream string
	factor int64
}

func (a *appender) OpenStreams(set *frame.StreamSet) error {
	set.Append(frame.NewDataStream(a.stream))
	return nil
}

func (a *appender) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	v, _ := frame.ValueOf[int64](in[0])
	return []frame.FrameSet{in.With(frame.NewValueFrame(v * a.factor))}
}

func seq(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func testCtx() Option {
	return WithContext(NewContext())
}
