package graph

import (
	"fmt"

	"github.com/bft-labs/framegraph/pkg/frame"
)

// FeedbackInfo is a back edge: the frame of Stream in the first FrameSet a
// unit emits per call is handed to Target for its next invocation.
type FeedbackInfo struct {
	Stream string
	Target *Unit

	// resolved during negotiation
	streamIdx int
	targetIdx int
}

// FeedbackResult registers a back edge from u to target carrying the stream
// named stream. Register before PrepareProcessing; the stream must be visible
// to u after its OpenStreams.
func (u *Unit) FeedbackResult(target *Unit, stream string) {
	u.feedback = append(u.feedback, &FeedbackInfo{
		Stream:    stream,
		Target:    target,
		streamIdx: -1,
		targetIdx: -1,
	})
}

// Feedback returns the registered back edges.
func (u *Unit) Feedback() []FeedbackInfo {
	out := make([]FeedbackInfo, len(u.feedback))
	for i, f := range u.feedback {
		out[i] = *f
	}
	return out
}

// resolveFeedback finds the source slot of every back edge in set and
// announces the stream to its target.
func (u *Unit) resolveFeedback(set frame.StreamSet) error {
	for _, f := range u.feedback {
		idx := set.IndexOf(f.Stream)
		if idx < 0 {
			return fmt.Errorf("%w: %q for feedback from %s", ErrStreamNotFound, f.Stream, u.name)
		}
		if f.Target == nil || f.Target.pool != nil {
			return fmt.Errorf("%w: stream %q from %s", ErrFeedbackTarget, f.Stream, u.name)
		}
		f.streamIdx = idx
		f.targetIdx = f.Target.addFeedbackStream(set[idx])
	}
	return nil
}

func (u *Unit) addFeedbackStream(s frame.Stream) int {
	u.feedbackStreams = append(u.feedbackStreams, s)
	return len(u.feedbackStreams) - 1
}

// deliverFeedback shares the first output with every target.
func (u *Unit) deliverFeedback(out []frame.FrameSet) {
	if len(out) == 0 {
		return
	}
	first := out[0]
	for _, f := range u.feedback {
		f.Target.addFeedbackFrame(first[f.streamIdx], f.targetIdx)
	}
}

func (u *Unit) addFeedbackFrame(fr frame.Frame, idx int) {
	if idx < len(u.nextFeedback) {
		u.nextFeedback[idx] = fr
	}
}
