package graph

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/framegraph/pkg/frame"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/metrics"
	"github.com/bft-labs/framegraph/pkg/queue"
)

// SinkPolicy selects how a PipelineSink reacts to its queue depth.
type SinkPolicy int

const (
	// PolicyNone leaves the upstream rate alone.
	PolicyNone SinkPolicy = iota

	// PolicyAdjustRate asks upstream to slow down when the queue grows and to
	// speed up when it runs dry.
	PolicyAdjustRate
)

func (p SinkPolicy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicyAdjustRate:
		return "adjust"
	default:
		return "unknown"
	}
}

// ParseSinkPolicy accepts "none" and "adjust".
func ParseSinkPolicy(s string) (SinkPolicy, error) {
	switch s {
	case "", "none":
		return PolicyNone, nil
	case "adjust":
		return PolicyAdjustRate, nil
	default:
		return PolicyNone, fmt.Errorf("unknown sink policy %q", s)
	}
}

const (
	// policyInterval is the number of frames between two policy checks.
	policyInterval = 6
	// policyHighWater is the depth above which upstream is asked to slow down.
	policyHighWater = 5
	slowDownFactor  = 0.8
	speedUpFactor   = 1.2
)

// DefaultPollTimeout is how long a PipelineSource waits for a FrameSet before
// re-checking whether its sink is exhausted.
const DefaultPollTimeout = 5 * time.Millisecond

// PipelineSink ends the part of a graph that runs on the producer goroutine.
// Every FrameSet it receives is queued for the attached PipelineSources and
// also forwarded to its own children.
type PipelineSink struct {
	BaseProcessor

	queue     *queue.Queue[frame.FrameSet]
	policy    SinkPolicy
	capacity  int
	exhausted atomic.Bool
	sourceFPS atomic.Uint64 // math.Float64bits

	frameNumber int
	metrics     *metrics.Collector

	mu      sync.Mutex
	sources []*PipelineSource
}

// NewPipelineSink creates a sink and its unit. A capacity above zero makes
// the producer block while that many FrameSets are queued.
func NewPipelineSink(policy SinkPolicy, capacity int, opts ...Option) *PipelineSink {
	s := &PipelineSink{
		queue:    queue.New[frame.FrameSet](),
		policy:   policy,
		capacity: capacity,
	}
	s.sourceFPS.Store(math.Float64bits(UnknownRate))
	u := New(s, opts...)
	s.metrics = u.metrics
	return s
}

// ProcessFrame queues in and passes it on unchanged.
func (s *PipelineSink) ProcessFrame(in frame.FrameSet) []frame.FrameSet {
	s.queue.PushBounded(in, s.capacity)
	depth := s.queue.Size()
	s.metrics.SetQueueDepth(s.unit.name, depth)

	if s.policy == PolicyAdjustRate && s.frameNumber > 0 && s.frameNumber%policyInterval == 0 {
		s.applyPolicy(depth)
	}
	s.frameNumber++
	return []frame.FrameSet{in}
}

func (s *PipelineSink) applyPolicy(depth int) {
	rate := s.MeasuredRate()
	if rate <= 0 {
		return
	}
	switch {
	case depth > policyHighWater:
		s.unit.logger.Debug("queue deep, slowing upstream",
			log.Int("depth", depth), log.Float64("fps", rate*slowDownFactor))
		s.metrics.ObserveRateAdjustment(s.unit.name, metrics.DirectionDown)
		s.unit.AdjustRate(rate * slowDownFactor)
	case depth == 1:
		s.unit.logger.Debug("queue drained, speeding up upstream",
			log.Int("depth", depth), log.Float64("fps", rate*speedUpFactor))
		s.metrics.ObserveRateAdjustment(s.unit.name, metrics.DirectionUp)
		s.unit.AdjustRate(rate * speedUpFactor)
	}
}

// PostProcess marks the sink exhausted: upstream has nothing more.
func (s *PipelineSink) PostProcess() []frame.FrameSet {
	s.MarkExhausted()
	return nil
}

// MarkExhausted tells attached sources that no more FrameSets will arrive.
func (s *PipelineSink) MarkExhausted() {
	if !s.exhausted.Swap(true) {
		s.unit.logger.Info("sink exhausted", log.Int("queued", s.queue.Size()))
	}
}

// Exhausted reports whether upstream finished.
func (s *PipelineSink) Exhausted() bool { return s.exhausted.Load() }

// QueueSize returns the number of queued FrameSets.
func (s *PipelineSink) QueueSize() int { return s.queue.Size() }

// MeasuredRate is the rate last reported by an attached source, or the
// sink's own call rate if no source reported yet.
func (s *PipelineSink) MeasuredRate() float64 {
	if fps := math.Float64frombits(s.sourceFPS.Load()); fps > 0 {
		return fps
	}
	return s.unit.CurrentRate()
}

func (s *PipelineSink) reportSourceFPS(fps float64) {
	s.sourceFPS.Store(math.Float64bits(fps))
}

func (s *PipelineSink) attach(src *PipelineSource) {
	s.mu.Lock()
	s.sources = append(s.sources, src)
	s.mu.Unlock()
}

func (s *PipelineSink) attached() []*PipelineSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*PipelineSource(nil), s.sources...)
}

// negotiateAttached gives each source the streams visible at the sink.
func (s *PipelineSink) negotiateAttached(set frame.StreamSet) error {
	for _, src := range s.attached() {
		if err := src.unit.openStreams(set.Clone(), nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *PipelineSink) resetAttached() {
	for _, src := range s.attached() {
		src.unit.resetNegotiation()
	}
}

func (s *PipelineSink) negotiateAttachedFeedback() error {
	for _, src := range s.attached() {
		if err := src.unit.openFeedbackStreams(nil); err != nil {
			return err
		}
	}
	return nil
}

// PipelineSource starts the part of a graph that runs on the consumer
// goroutine. It pops FrameSets from its sink, paces them to a target rate and
// pushes them to its children. It is negotiated together with its sink.
type PipelineSource struct {
	BaseProcessor

	sink        *PipelineSink
	targetFPS   atomic.Uint64 // math.Float64bits
	pollTimeout time.Duration

	frameNum int
	prev     time.Time
}

// NewPipelineSource creates a source draining sink. A targetFPS of zero
// means unthrottled.
func NewPipelineSource(sink *PipelineSink, targetFPS float64, opts ...Option) *PipelineSource {
	s := &PipelineSource{
		sink:        sink,
		pollTimeout: DefaultPollTimeout,
	}
	s.SetTargetRate(targetFPS)
	New(s, opts...)
	sink.attach(s)
	return s
}

// SetPollTimeout changes how long Run waits for each FrameSet.
func (s *PipelineSource) SetPollTimeout(d time.Duration) {
	if d > 0 {
		s.pollTimeout = d
	}
}

// SetTargetRate changes the pacing; it may be called from any goroutine.
func (s *PipelineSource) SetTargetRate(fps float64) {
	if fps < 0 {
		fps = 0
	}
	s.targetFPS.Store(math.Float64bits(fps))
}

// TargetRate returns the current target rate, 0 if unthrottled.
func (s *PipelineSource) TargetRate() float64 {
	return math.Float64frombits(s.targetFPS.Load())
}

// AdjustRate takes rate requests from downstream units as the new target.
func (s *PipelineSource) AdjustRate(fps float64) float64 {
	s.SetTargetRate(fps)
	return fps
}

// Sink returns the sink the source drains.
func (s *PipelineSource) Sink() *PipelineSink { return s.sink }

// Run drains the sink until it is exhausted and empty, then flushes the
// children. Call it on its own goroutine once the sink's root is prepared.
// UnitRate of the source's unit is measured over the time spent pushing each
// FrameSet through its children; CurrentRate is the paced output rate.
func (s *PipelineSource) Run() (err error) {
	u := s.unit
	if u.failed != nil {
		return u.failed
	}
	if !u.prepared {
		return fmt.Errorf("%w: %s", ErrNotPrepared, u.name)
	}
	defer func() {
		if err != nil {
			go s.discard()
		}
	}()
	defer u.abortOnFatal(&err)
	defer catchFatal(&err)

	u.logger.Info("pipeline source started", log.Float64("target_fps", s.TargetRate()))
	for {
		fs, ok := s.sink.queue.TimedWaitPop(s.pollTimeout)
		if !ok {
			// Exhaustion first: once it is set nothing more gets queued.
			if s.sink.Exhausted() && s.sink.queue.Empty() {
				break
			}
			continue
		}
		s.sink.metrics.SetQueueDepth(s.sink.unit.name, s.sink.queue.Size())
		s.pace()
		start := time.Now()
		u.forward([]frame.FrameSet{fs})
		u.recordSelf(start, time.Now())
		s.frameNum++
	}

	for _, c := range u.children {
		c.postProcess(u)
	}
	u.exhausted = true
	u.logger.Info("pipeline source finished",
		log.Int("frames", s.frameNum),
		log.Float64("fps", u.CurrentRate()),
	)
	return nil
}

// discard empties the sink after a failed run so a bounded producer never
// blocks on a queue nobody drains.
func (s *PipelineSource) discard() {
	for !(s.sink.Exhausted() && s.sink.queue.Empty()) {
		s.sink.queue.TimedWaitPop(s.pollTimeout)
	}
}

// pace sleeps out the rest of the target interval since the previous
// FrameSet and reports the achieved rate to the sink.
func (s *PipelineSource) pace() {
	now := time.Now()
	if s.frameNum > 0 {
		if target := s.TargetRate(); target > 0 {
			interval := time.Duration(float64(time.Second) / target)
			if wait := interval - now.Sub(s.prev); wait > 0 {
				time.Sleep(wait)
				now = time.Now()
			}
		}
		s.unit.currentRate.push(now.Sub(s.prev))
		s.sink.reportSourceFPS(s.unit.CurrentRate())
	}
	s.prev = now
}
