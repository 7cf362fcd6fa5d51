package graph

import (
	"fmt"
	"sync"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/log"
)

// PoolState is the phase of a Pool.
type PoolState int

const (
	// PoolCollecting buffers FrameSets from every sender.
	PoolCollecting PoolState = iota
	// PoolJoining negotiates the pool's children and runs the join.
	PoolJoining
	// PoolEmitting drains RootPostProcess like a root would.
	PoolEmitting
	// PoolDone is reached once the children were flushed.
	PoolDone
)

func (s PoolState) String() string {
	switch s {
	case PoolCollecting:
		return "Collecting"
	case PoolJoining:
		return "Joining"
	case PoolEmitting:
		return "Emitting"
	case PoolDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Emitter pushes FrameSets straight to a pool's children.
type Emitter func(sets ...frame.FrameSet)

// Joiner is the computation a Pool runs once every sender is exhausted.
type Joiner interface {
	// OpenPoolStreams receives the streams each sender negotiated, indexed
	// by sender id.
	OpenPoolStreams(sets []frame.StreamSet) error

	// Join runs once over everything the senders pushed, indexed by sender
	// id. Results may be pushed right away through emit.
	Join(frames [][]frame.FrameSet, emit Emitter)
}

// RootStreamOpener declares the streams the pool's children see. Without it
// the children start from an empty StreamSet.
type RootStreamOpener interface {
	OpenRootStreams(set *frame.StreamSet) error
}

// RootPostProcessor produces output after Join, like PostProcess on a root.
type RootPostProcessor interface {
	RootPostProcess() []frame.FrameSet
}

// Pool joins several independently driven trees. Add its unit as a child of
// every sender; it buffers what each sender pushes and, once all of them are
// exhausted, negotiates its own children and runs the Joiner on the goroutine
// of the last sender to finish.
type Pool struct {
	BaseProcessor

	joiner Joiner

	mu         sync.Mutex
	state      PoolState
	senders    []*Unit // index is the sender id
	streamSets []frame.StreamSet
	frames     [][]frame.FrameSet
	exhausted  []bool
}

// NewPool creates a pool running j.
func NewPool(j Joiner, opts ...Option) *Pool {
	p := &Pool{joiner: j}
	u := New(p, opts...)
	u.pool = p
	u.typeName = typeName(j)
	return p
}

// Joiner returns the pool's join computation.
func (p *Pool) Joiner() Joiner { return p.joiner }

// State returns the current phase.
func (p *Pool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// InputUnits returns the number of registered senders.
func (p *Pool) InputUnits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.senders)
}

// senderID returns the first-seen id of sender, registering it if insert is
// set. It returns -1 for unknown senders. The list stays small, so a linear
// scan is enough. Callers hold p.mu.
func (p *Pool) senderID(sender *Unit, insert bool) int {
	for i, s := range p.senders {
		if s == sender {
			return i
		}
	}
	if !insert {
		return -1
	}
	p.senders = append(p.senders, sender)
	p.streamSets = append(p.streamSets, nil)
	p.frames = append(p.frames, nil)
	p.exhausted = append(p.exhausted, false)
	return len(p.senders) - 1
}

func (p *Pool) fail(op string, err error) {
	pe := &PoolError{Pool: p.unit.name, Op: op, Err: err}
	p.unit.logger.Error("pool failure", log.String("op", op), log.Err(err))
	panic(pe)
}

func (p *Pool) openFromSender(set frame.StreamSet, sender *Unit) error {
	if sender == nil {
		return fmt.Errorf("%w: pool %s cannot be a root", ErrNegotiation, p.unit.name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PoolCollecting && p.senderID(sender, false) < 0 {
		err := fmt.Errorf("%w: %w: %s arrived while %s",
			ErrNegotiation, ErrUnregisteredSender, sender.name, p.state)
		return &PoolError{Pool: p.unit.name, Op: "OpenStreams", Err: err}
	}
	if p.state != PoolCollecting {
		return fmt.Errorf("%w: pool %s is %s", ErrNegotiation, p.unit.name, p.state)
	}
	id := p.senderID(sender, true)
	p.streamSets[id] = set.Clone()
	p.unit.logger.Debug("sender registered",
		log.Int("sender_id", id),
		log.String("sender", sender.name),
		log.Int("streams", len(set)),
	)
	return nil
}

func (p *Pool) collect(in frame.FrameSet, sender *Unit) {
	p.mu.Lock()
	id := p.senderID(sender, false)
	if id < 0 || p.state != PoolCollecting {
		state := p.state
		p.mu.Unlock()
		if id < 0 {
			p.fail("ProcessFrame", fmt.Errorf("%w: %s", ErrUnregisteredSender, senderName(sender)))
		}
		p.fail("ProcessFrame", fmt.Errorf("frame from %s while %s", senderName(sender), state))
	}
	p.frames[id] = append(p.frames[id], in)
	p.mu.Unlock()
}

func (p *Pool) senderExhausted(sender *Unit) {
	p.mu.Lock()
	id := p.senderID(sender, false)
	if id < 0 {
		p.mu.Unlock()
		p.fail("PostProcess", fmt.Errorf("%w: %s", ErrUnregisteredSender, senderName(sender)))
	}
	p.exhausted[id] = true
	if p.state != PoolCollecting || !allTrue(p.exhausted) {
		p.mu.Unlock()
		return
	}

	// One-shot: later senders can no longer change the buffered data.
	p.state = PoolJoining
	sets, frames := p.streamSets, p.frames
	p.streamSets, p.frames = nil, nil
	p.mu.Unlock()

	p.join(sets, frames)
}

func (p *Pool) join(sets []frame.StreamSet, frames [][]frame.FrameSet) {
	u := p.unit
	u.logger.Info("all senders exhausted, joining", log.Int("senders", len(sets)))

	if err := p.joiner.OpenPoolStreams(sets); err != nil {
		p.fail("OpenPoolStreams", fmt.Errorf("%w: %w", ErrNegotiation, err))
	}

	var root frame.StreamSet
	if o, ok := p.joiner.(RootStreamOpener); ok {
		if err := o.OpenRootStreams(&root); err != nil {
			p.fail("OpenRootStreams", fmt.Errorf("%w: %w", ErrNegotiation, err))
		}
	}
	for i := range root {
		if root.IndexOf(root[i].Name()) < i {
			p.fail("OpenRootStreams", fmt.Errorf("%w: %q", ErrDuplicateStream, root[i].Name()))
		}
	}
	u.streamCount = len(root)

	for _, c := range u.children {
		if err := c.openStreams(root.Clone(), u); err != nil {
			p.fail("negotiate children", err)
		}
	}
	for _, c := range u.children {
		if err := c.openFeedbackStreams(u); err != nil {
			p.fail("negotiate children", err)
		}
	}
	u.prepared = true

	p.joiner.Join(frames, p.Emit)

	p.setState(PoolEmitting)
	if rp, ok := p.joiner.(RootPostProcessor); ok {
		for {
			out := rp.RootPostProcess()
			if len(out) == 0 {
				break
			}
			u.checkContract(out, "RootPostProcess")
			u.forward(out)
		}
	}
	for _, c := range u.children {
		c.postProcess(u)
	}

	u.exhausted = true
	p.setState(PoolDone)
	u.logger.Info("pool finished")
}

// Emit pushes sets to the pool's children right away. It may only be used
// from Join.
func (p *Pool) Emit(sets ...frame.FrameSet) {
	if st := p.State(); st != PoolJoining {
		p.fail("Emit", fmt.Errorf("emit while %s", st))
	}
	p.unit.checkContract(sets, "Emit")
	p.unit.forward(sets)
}

func (p *Pool) setState(s PoolState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func senderName(u *Unit) string {
	if u == nil {
		return "<nil>"
	}
	return u.name
}

func allTrue(v []bool) bool {
	for _, b := range v {
		if !b {
			return false
		}
	}
	return true
}
