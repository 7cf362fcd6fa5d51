package graph

import (
	"fmt"
	"reflect"
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/metrics"
)

// Unit is a node of the processing graph. It owns its children in
// registration order and keeps a reference to its parent.
//
// A Unit is not safe for concurrent use. The whole tree below a root is
// driven from a single goroutine.
type Unit struct {
	name     string
	typeName string
	proc     Processor
	logger   log.Logger
	metrics  *metrics.Collector

	parent   *Unit
	children []*Unit

	// set for units created by NewPool
	pool *Pool

	streamCount int
	prepared    bool
	exhausted   bool
	failed      error

	feedback        []*FeedbackInfo
	feedbackStreams frame.StreamSet
	feedbackCount   int
	nextFeedback    frame.FrameSet
	curFeedback     frame.FrameSet

	unitRate    *rateBuffer
	currentRate *rateBuffer
	prevCall    time.Time
}

// New creates a unit running p.
func New(p Processor, opts ...Option) *Unit {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		ctx := o.ctx
		if ctx == nil {
			ctx = DefaultContext()
		}
		o.name = ctx.NextID("unit")
	}

	u := &Unit{
		name:        o.name,
		typeName:    typeName(p),
		proc:        p,
		metrics:     o.metrics,
		unitRate:    newRateBuffer(o.rateBufferSize),
		currentRate: newRateBuffer(o.rateBufferSize),
	}
	u.logger = o.logger.With(log.Unit(u.name))
	if b, ok := p.(Binder); ok {
		b.Bind(u)
	}
	return u
}

func typeName(p any) string {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

// Name returns the unit name.
func (u *Unit) Name() string { return u.name }

// TypeName returns the type of the unit's processor, e.g. "stages.Recorder".
func (u *Unit) TypeName() string { return u.typeName }

// Processor returns the processor the unit runs.
func (u *Unit) Processor() Processor { return u.proc }

// Logger returns the unit's logger, tagged with its name.
func (u *Unit) Logger() log.Logger { return u.logger }

// StreamCount returns the number of streams declared during negotiation.
func (u *Unit) StreamCount() int { return u.streamCount }

// Prepared reports whether negotiation completed for this unit.
func (u *Unit) Prepared() bool { return u.prepared }

func (u *Unit) String() string {
	return fmt.Sprintf("%s(%s)", u.name, u.typeName)
}

// AddChild appends c to the children of u and makes u its parent. A pool may
// be added to any number of senders and keeps no parent.
func (u *Unit) AddChild(c *Unit) {
	u.children = append(u.children, c)
	if c.pool == nil {
		c.parent = u
	}
}

// AttachTo makes u the last child of parent.
func (u *Unit) AttachTo(parent *Unit) {
	parent.AddChild(u)
}

// RemoveChild detaches c from u. It reports whether c was a child.
func (u *Unit) RemoveChild(c *Unit) bool {
	for i, child := range u.children {
		if child == c {
			u.children = append(u.children[:i], u.children[i+1:]...)
			if c.parent == u {
				c.parent = nil
			}
			return true
		}
	}
	return false
}

// RemoveFrom detaches u from parent.
func (u *Unit) RemoveFrom(parent *Unit) bool {
	return parent.RemoveChild(u)
}

// HasChild reports whether c is a direct child of u.
func (u *Unit) HasChild(c *Unit) bool {
	for _, child := range u.children {
		if child == c {
			return true
		}
	}
	return false
}

// Parent returns the parent unit, or nil for roots and pools.
func (u *Unit) Parent() *Unit { return u.parent }

// Root walks up to the unit without a parent.
func (u *Unit) Root() *Unit {
	cur := u
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Children returns a copy of the children in registration order.
func (u *Unit) Children() []*Unit {
	out := make([]*Unit, len(u.children))
	copy(out, u.children)
	return out
}

// SetRateBufferSize changes the number of samples kept for rate estimates
// and clears the samples recorded so far.
func (u *Unit) SetRateBufferSize(n int) {
	u.unitRate.resize(n)
	u.currentRate.resize(n)
}

// UnitRate is the rate the unit could sustain on its own, from the time spent
// inside its processor. It returns UnknownRate before the first call.
func (u *Unit) UnitRate() float64 { return u.unitRate.fps() }

// CurrentRate is the rate at which the unit is actually being called, from
// the gaps between consecutive calls. It returns UnknownRate until two calls
// were made.
func (u *Unit) CurrentRate() float64 { return u.currentRate.fps() }

// recordCall stores the timing of one processor call that produced n
// FrameSets; PostProcess calls spread their time over their outputs.
func (u *Unit) recordCall(start, end time.Time, n int) {
	if n < 1 {
		n = 1
	}
	self := end.Sub(start) / time.Duration(n)
	for i := 0; i < n; i++ {
		u.unitRate.push(self)
	}
	if !u.prevCall.IsZero() {
		gap := end.Sub(u.prevCall) / time.Duration(n)
		for i := 0; i < n; i++ {
			u.currentRate.push(gap)
		}
	}
	u.prevCall = end

	u.metrics.ObserveProcess(u.name, end.Sub(start))
	u.metrics.SetRates(u.name, u.UnitRate(), u.CurrentRate())
}

// recordSelf stores the time spent on one FrameSet by a unit whose call gaps
// are measured elsewhere.
func (u *Unit) recordSelf(start, end time.Time) {
	u.unitRate.push(end.Sub(start))
	u.metrics.ObserveProcess(u.name, end.Sub(start))
	u.metrics.SetRates(u.name, u.UnitRate(), u.CurrentRate())
}

// AdjustRate asks the units above u to produce at fps. Each unit on the way,
// starting with u, may rewrite the requested rate through RateAdjuster.
func (u *Unit) AdjustRate(fps float64) {
	for cur := u; cur != nil; cur = cur.parent {
		if ra, ok := cur.proc.(RateAdjuster); ok {
			fps = ra.AdjustRate(fps)
		}
	}
}

// Seek asks the tree below u to move to t. Children are only seeked if the
// processor of u reports a change, in which case pending feedback is dropped.
func (u *Unit) Seek(t time.Duration) bool {
	changed := true
	if s, ok := u.proc.(Seeker); ok {
		changed = s.Seek(t)
	}
	if !changed {
		return false
	}
	for _, c := range u.children {
		c.Seek(t)
	}
	u.nextFeedback = make(frame.FrameSet, u.feedbackCount)
	u.logger.Debug("seeked", log.Duration("position", t))
	return true
}
