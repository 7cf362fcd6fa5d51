package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bft-labs/framegraph/pkg/frame"
)

type failingOpen struct{ BaseProcessor }

func (failingOpen) OpenStreams(*frame.StreamSet) error { return errors.New("missing input") }

type remover struct{ BaseProcessor }

func (remover) OpenStreams(set *frame.StreamSet) error {
	*set = (*set)[:0]
	return nil
}

type nilStream struct{ BaseProcessor }

func (nilStream) OpenStreams(set *frame.StreamSet) error {
	*set = append(*set, nil)
	return nil
}

func TestNegotiation_NilStream(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	late := newRecorder("late", nil)
	bad := New(&nilStream{}, testCtx())
	bad.AddChild(New(late, testCtx()))
	root.AddChild(bad)

	var err error
	require.NotPanics(t, func() { err = root.PrepareProcessing() })
	assert.ErrorIs(t, err, ErrNegotiation)
	assert.False(t, root.Prepared())
	assert.Nil(t, late.streams)
}

func TestNegotiation_DuplicateStream(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	root.AddChild(New(&appender{stream: "value"}, testCtx()))

	err := root.PrepareProcessing()
	assert.ErrorIs(t, err, ErrNegotiation)
	assert.ErrorIs(t, err, ErrDuplicateStream)
	assert.False(t, root.Prepared())
}

func TestNegotiation_AncestorStreamRemoved(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	root.AddChild(New(&remover{}, testCtx()))

	err := root.PrepareProcessing()
	assert.ErrorIs(t, err, ErrStreamRemoved)
}

func TestNegotiation_FailureStopsTraversal(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	root.AddChild(New(&failingOpen{}, testCtx()))
	late := newRecorder("late", nil)
	root.AddChild(New(late, testCtx()))

	err := root.PrepareProcessing()
	require.ErrorIs(t, err, ErrNegotiation)
	assert.Contains(t, err.Error(), "missing input")
	assert.Nil(t, late.streams, "negotiation must stop at the first failure")

	assert.ErrorIs(t, root.Run(), ErrNotPrepared)
}

func TestNegotiation_SiblingsOnlySeeAncestors(t *testing.T) {
	root := New(newCounter("value", 1), testCtx())
	left := New(&appender{stream: "left", factor: 1}, testCtx())
	leftLeaf := newRecorder("ll", nil)
	left.AddChild(New(leftLeaf, testCtx()))
	right := newRecorder("r", nil)
	root.AddChild(left)
	root.AddChild(New(right, testCtx()))

	require.NoError(t, root.PrepareAndRun())

	assert.Equal(t, []string{"value", "left"}, leftLeaf.streams)
	assert.Equal(t, []string{"value"}, right.streams)
	assert.Equal(t, 2, left.StreamCount())
	require.Len(t, leftLeaf.sets, 1)
	assert.Len(t, leftLeaf.sets[0], 2)
	assert.Len(t, right.sets[0], 1)
}

// Every FrameSet a unit receives has as many slots as its parent declared,
// for arbitrary trees of stream-appending units.
func TestNegotiation_StreamCountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := NewContext()
		ticks := rapid.IntRange(1, 5).Draw(t, "ticks")
		root := New(newCounter("s0", ticks), WithContext(ctx))

		units := []*Unit{root}
		nodes := rapid.IntRange(1, 12).Draw(t, "nodes")
		for i := 0; i < nodes; i++ {
			parent := units[rapid.IntRange(0, len(units)-1).Draw(t, fmt.Sprintf("parent%d", i))]
			adds := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("adds%d", i))
			sc := &slotCheck{prefix: fmt.Sprintf("n%d_", i), adds: adds}
			u := New(sc, WithContext(ctx))
			parent.AddChild(u)
			units = append(units, u)
		}

		if err := root.PrepareAndRun(); err != nil {
			t.Fatalf("run: %v", err)
		}
		for _, u := range units[1:] {
			sc := u.Processor().(*slotCheck)
			if sc.received != ticks {
				t.Fatalf("%s received %d FrameSets, want %d", u.Name(), sc.received, ticks)
			}
			if u.StreamCount() != u.Parent().StreamCount()+sc.adds {
				t.Fatalf("%s declared %d streams, parent %d + %d", u.Name(), u.StreamCount(), u.Parent().StreamCount(), sc.adds)
			}
			if sc.badInput > 0 {
				t.Fatalf("%s received %d FrameSets of the wrong length", u.Name(), sc.badInput)
			}
		}
	})
}

// slotCheck appends adds streams and verifies the input length.
type slotCheck struct {
	BaseProcessor
	prefix   string
	adds     int
	inputLen int
	received int
	badInput int
}

func (s *slotCheck) OpenStreams(set *frame.StreamSet) error {
	s.inputLen = set.Len()
	for i := 0; i < s.adds; i++ {
		set.Append(frame.NewDataStream(fmt.Sprintf("%s%d", s.prefix, i)))
	}
	return nil
}

func (s *slotCheck) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	s.received++
	if len(in) != s.inputLen {
		s.badInput++
	}
	out := in
	for i := 0; i < s.adds; i++ {
		out = out.With(frame.NewDataFrame(1))
	}
	return []frame.FrameSet{out}
}
