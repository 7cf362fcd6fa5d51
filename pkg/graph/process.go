package graph

import (
	"fmt"
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/log"
)

// Run drains the root u: PostProcess is called until it yields nothing, each
// result is pushed through the tree, and finally every child is flushed.
// PrepareProcessing must have succeeded. After a fatal error the root stays
// aborted and Run returns that error without running anything.
func (u *Unit) Run() (err error) {
	if err := u.checkRunnable(); err != nil {
		return err
	}
	defer u.abortOnFatal(&err)
	defer catchFatal(&err)

	start := time.Now()
	u.postProcess(nil)
	u.exhausted = true
	u.logger.Info("run finished",
		log.Duration("took", time.Since(start)),
		log.Float64("unit_rate", u.UnitRate()),
	)
	return nil
}

// PrepareAndRun negotiates the tree of u and runs it.
func (u *Unit) PrepareAndRun() error {
	if err := u.PrepareProcessing(); err != nil {
		return err
	}
	return u.Run()
}

// NextFrame performs a single PostProcess step on the root u and pushes the
// results through the tree. Once the root yields nothing the children are
// flushed and NextFrame returns false; later calls keep returning false.
// Once a step failed fatally every later call returns the same error.
func (u *Unit) NextFrame() (more bool, err error) {
	if err := u.checkRunnable(); err != nil {
		return false, err
	}
	if u.exhausted {
		return false, nil
	}
	defer u.abortOnFatal(&err)
	defer catchFatal(&err)

	if u.postProcessStep() {
		return true, nil
	}
	u.exhausted = true
	for _, c := range u.children {
		c.postProcess(u)
	}
	u.logger.Debug("source exhausted")
	return false, nil
}

// Exhausted reports whether a root finished its run.
func (u *Unit) Exhausted() bool { return u.exhausted }

// Aborted returns the fatal error that stopped the root, if any.
func (u *Unit) Aborted() error { return u.failed }

func (u *Unit) checkRunnable() error {
	if u.parent != nil {
		return fmt.Errorf("%w: %s", ErrNotRoot, u.name)
	}
	if u.failed != nil {
		return u.failed
	}
	if !u.prepared {
		return fmt.Errorf("%w: %s", ErrNotPrepared, u.name)
	}
	return nil
}

// abortOnFatal marks u as aborted when *err holds a fatal error. Nothing
// runs on an aborted root again, so the tree below the failing unit gets no
// further frames and no flush.
func (u *Unit) abortOnFatal(err *error) {
	if *err != nil && IsFatal(*err) {
		u.failed = *err
		u.logger.Error("run aborted", log.Err(*err))
	}
}

// processFrame handles one FrameSet pushed by sender.
func (u *Unit) processFrame(in frame.FrameSet, sender *Unit) {
	if u.pool != nil {
		u.pool.collect(in, sender)
		return
	}

	if u.feedbackCount > 0 {
		u.curFeedback, u.nextFeedback = u.nextFeedback, make(frame.FrameSet, u.feedbackCount)
	}

	start := time.Now()
	var out []frame.FrameSet
	if fp, ok := u.proc.(FeedbackProcessor); ok && u.feedbackCount > 0 {
		out = fp.ProcessFrameWithFeedback(in, u.curFeedback)
	} else {
		out = u.proc.ProcessFrame(in)
	}
	u.checkContract(out, "ProcessFrame")
	u.recordCall(start, time.Now(), 1)

	u.deliverFeedback(out)
	u.forward(out)
}

// postProcess calls PostProcess until it yields nothing, then flushes the
// children.
func (u *Unit) postProcess(sender *Unit) {
	if u.pool != nil {
		u.pool.senderExhausted(sender)
		return
	}
	for u.postProcessStep() {
	}
	for _, c := range u.children {
		c.postProcess(u)
	}
}

// postProcessStep runs one PostProcess call and reports whether it produced
// anything.
func (u *Unit) postProcessStep() bool {
	start := time.Now()
	out := u.proc.PostProcess()
	if len(out) == 0 {
		return false
	}
	u.checkContract(out, "PostProcess")
	u.recordCall(start, time.Now(), len(out))
	u.forward(out)
	return true
}

// forward pushes each FrameSet through every child in registration order
// before moving on to the next one.
func (u *Unit) forward(out []frame.FrameSet) {
	if len(out) == 0 {
		return
	}
	for _, fs := range out {
		for _, c := range u.children {
			c.processFrame(fs, u)
		}
	}
	u.metrics.ObserveEmitted(u.name, len(out))
}

// checkContract aborts the run if any FrameSet has the wrong length. It runs
// before anything is forwarded.
func (u *Unit) checkContract(out []frame.FrameSet, phase string) {
	for _, fs := range out {
		if len(fs) == u.streamCount {
			continue
		}
		err := &ContractError{
			Unit:     u.name,
			UnitType: u.typeName,
			Phase:    phase,
			Declared: u.streamCount,
			Got:      len(fs),
		}
		u.logger.Error("stream count mismatch",
			log.String("type", u.typeName),
			log.String("phase", phase),
			log.Int("declared", u.streamCount),
			log.Int("got", len(fs)),
		)
		u.metrics.ObserveContractViolation(u.name)
		panic(err)
	}
}
