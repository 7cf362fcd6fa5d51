package graph

import (
	"errors"
	"fmt"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/log"
)

// attachedNegotiator is implemented by processors that start another tree
// from inside their own negotiation, like PipelineSink.
type attachedNegotiator interface {
	negotiateAttached(set frame.StreamSet) error
	negotiateAttachedFeedback() error
	resetAttached()
}

// PrepareProcessing negotiates streams and feedback streams for the tree
// rooted at u. Nothing runs if it fails.
func (u *Unit) PrepareProcessing() error {
	if u.parent != nil {
		return fmt.Errorf("%w: %s has parent %s", ErrNotRoot, u.name, u.parent.name)
	}
	u.resetNegotiation()
	if err := u.negotiate(frame.StreamSet{}, nil); err != nil {
		u.logger.Error("negotiation failed", log.Err(err))
		return err
	}
	u.exhausted = false
	u.logger.Info("graph prepared", log.Int("streams", u.streamCount))
	return nil
}

// resetNegotiation drops what an earlier, possibly failed, negotiation left
// behind in the tree of u, including feedback streams announced to targets.
// Pools are skipped: their children are negotiated by the join.
func (u *Unit) resetNegotiation() {
	if u.pool != nil {
		return
	}
	u.prepared = false
	u.feedbackStreams = nil
	for _, f := range u.feedback {
		f.streamIdx, f.targetIdx = -1, -1
		if f.Target != nil {
			f.Target.feedbackStreams = nil
		}
	}
	if a, ok := u.proc.(attachedNegotiator); ok {
		a.resetAttached()
	}
	for _, c := range u.children {
		c.resetNegotiation()
	}
}

// negotiate runs both phases on the tree of u.
func (u *Unit) negotiate(set frame.StreamSet, sender *Unit) error {
	if err := u.openStreams(set, sender); err != nil {
		return err
	}
	return u.openFeedbackStreams(sender)
}

func (u *Unit) openStreams(set frame.StreamSet, sender *Unit) error {
	if u.pool != nil {
		return u.pool.openFromSender(set, sender)
	}

	prev := set.Clone()
	if err := u.proc.OpenStreams(&set); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNegotiation, u, err)
	}
	if err := checkAppendOnly(prev, set); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNegotiation, u, err)
	}
	for i := len(prev); i < len(set); i++ {
		if set[i] == nil {
			return fmt.Errorf("%w: %s: nil stream at index %d", ErrNegotiation, u, i)
		}
		if set.IndexOf(set[i].Name()) < i {
			return fmt.Errorf("%w: %s: %w: %q", ErrNegotiation, u, ErrDuplicateStream, set[i].Name())
		}
	}
	u.streamCount = len(set)
	u.prepared = false

	if err := u.resolveFeedback(set); err != nil {
		return fmt.Errorf("%w: %w", ErrNegotiation, err)
	}

	u.logger.Debug("streams opened",
		log.Int("declared", u.streamCount),
		log.Int("added", len(set)-len(prev)),
	)

	if a, ok := u.proc.(attachedNegotiator); ok {
		if err := a.negotiateAttached(set); err != nil {
			return err
		}
	}

	// Siblings get their own copy: a unit only sees streams of its ancestors.
	for _, c := range u.children {
		if err := c.openStreams(set.Clone(), u); err != nil {
			return err
		}
	}
	return nil
}

func checkAppendOnly(prev, set frame.StreamSet) error {
	if len(set) < len(prev) {
		return fmt.Errorf("%w: %d streams before, %d after", ErrStreamRemoved, len(prev), len(set))
	}
	for i := range prev {
		if set[i] == nil || set[i].Name() != prev[i].Name() {
			return fmt.Errorf("%w: %q", ErrStreamRemoved, prev[i].Name())
		}
	}
	return nil
}

func (u *Unit) openFeedbackStreams(sender *Unit) error {
	// A pool's children are negotiated once all of its senders are done.
	if u.pool != nil {
		return nil
	}

	u.feedbackCount = len(u.feedbackStreams)
	if u.feedbackCount > 0 {
		if fo, ok := u.proc.(FeedbackOpener); ok {
			if err := fo.OpenFeedbackStreams(u.feedbackStreams.Clone()); err != nil {
				return fmt.Errorf("%w: %s: feedback: %w", ErrNegotiation, u, err)
			}
		}
		u.logger.Debug("feedback streams opened", log.Int("feedback", u.feedbackCount))
	}
	u.nextFeedback = make(frame.FrameSet, u.feedbackCount)
	u.curFeedback = nil

	if a, ok := u.proc.(attachedNegotiator); ok {
		if err := a.negotiateAttachedFeedback(); err != nil {
			return err
		}
	}

	for _, c := range u.children {
		if err := c.openFeedbackStreams(u); err != nil {
			return err
		}
	}

	u.feedbackStreams = nil
	u.prepared = true
	return nil
}

// IsNegotiationError reports whether err came from stream negotiation.
func IsNegotiationError(err error) bool {
	return errors.Is(err, ErrNegotiation)
}
