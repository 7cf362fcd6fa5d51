package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/framegraph/pkg/frame"
)

// feedbackReader records the fed-back value seen at every tick.
type feedbackReader struct {
	BaseProcessor
	opened []string
	seen   []int64 // -1 when no feedback was present
}

func (f *feedbackReader) OpenFeedbackStreams(set frame.StreamSet) error {
	f.opened = set.Names()
	return nil
}

func (f *feedbackReader) ProcessFrameWithFeedback(in, feedback frame.FrameSet) []frame.FrameSet {
	v, ok := frame.ValueOf[int64](feedback[0])
	if !ok {
		v = -1
	}
	f.seen = append(f.seen, v)
	return []frame.FrameSet{in}
}

func TestFeedback_OneTickLatency(t *testing.T) {
	root := New(newCounter("value", 4), testCtx())
	reader := &feedbackReader{}
	b := New(reader, testCtx())
	producer := New(&appender{stream: "echo", factor: 10}, testCtx())
	root.AddChild(b)
	b.AddChild(producer)
	producer.FeedbackResult(b, "echo")

	require.NoError(t, root.PrepareAndRun())

	assert.Equal(t, []string{"echo"}, reader.opened)
	// Tick k sees what the producer emitted at tick k-1.
	assert.Equal(t, []int64{-1, 0, 10, 20}, reader.seen)

	fb := producer.Feedback()
	require.Len(t, fb, 1)
	assert.Equal(t, 1, fb[0].streamIdx)
	assert.Equal(t, 0, fb[0].targetIdx)
}

func TestFeedback_SeekClearsPending(t *testing.T) {
	root := New(newCounter("value", 3), testCtx())
	reader := &feedbackReader{}
	b := New(reader, testCtx())
	producer := New(&appender{stream: "echo", factor: 1}, testCtx())
	root.AddChild(b)
	b.AddChild(producer)
	producer.FeedbackResult(b, "echo")
	require.NoError(t, root.PrepareProcessing())

	more, err := root.NextFrame()
	require.NoError(t, err)
	require.True(t, more)

	root.Seek(0)

	_, err = root.NextFrame()
	require.NoError(t, err)
	_, err = root.NextFrame()
	require.NoError(t, err)

	assert.Equal(t, []int64{-1, -1, 1}, reader.seen)
}

func TestFeedback_UnknownStream(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	b := New(&feedbackReader{}, testCtx())
	root.AddChild(b)
	b.FeedbackResult(root, "nope")

	err := root.PrepareProcessing()
	assert.ErrorIs(t, err, ErrStreamNotFound)
}

func TestFeedback_WithoutFeedbackProcessorUsesProcessFrame(t *testing.T) {
	root := New(newCounter("value", 2), testCtx())
	rec := newRecorder("r", nil)
	target := New(rec, testCtx())
	producer := New(&appender{stream: "echo", factor: 1}, testCtx())
	root.AddChild(target)
	target.AddChild(producer)
	producer.FeedbackResult(target, "echo")

	require.NoError(t, root.PrepareAndRun())
	assert.Equal(t, seq(2), rec.values())
}

func TestFeedback_RepreparedAfterFailedNegotiation(t *testing.T) {
	root := New(newCounter("value", 3), testCtx())
	reader := &feedbackReader{}
	b := New(reader, testCtx())
	producer := New(&appender{stream: "echo", factor: 10}, testCtx())
	root.AddChild(b)
	b.AddChild(producer)
	producer.FeedbackResult(b, "echo")

	broken := New(&failingOpen{}, testCtx())
	root.AddChild(broken)
	require.ErrorIs(t, root.PrepareProcessing(), ErrNegotiation)
	assert.False(t, root.Prepared())

	require.True(t, root.RemoveChild(broken))
	require.NoError(t, root.PrepareAndRun())

	assert.Equal(t, []string{"echo"}, reader.opened)
	assert.Equal(t, []int64{-1, 0, 10}, reader.seen)
	fb := producer.Feedback()
	require.Len(t, fb, 1)
	assert.Equal(t, 0, fb[0].targetIdx)
}
