package main

import (
	"io"

	"github.com/bft-labs/framegraph/internal/cliconfig"
	"github.com/bft-labs/framegraph/pkg/arbiter"
	"github.com/bft-labs/framegraph/pkg/graph"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/metrics"
	"github.com/bft-labs/framegraph/pkg/runner"
	"github.com/bft-labs/framegraph/pkg/stages"
)

// throttleReportEvery is how often the heavy stage reports its rate upstream.
const throttleReportEvery = 10

// pipeline is the demo graph:
//
//	generator_i -> sink_i ~> source_i -> throttle_i -\
//	                                                  pool(sum) -> recorder [-> display]
//
// Every generator runs on its own goroutine, every source on another.
type pipeline struct {
	roots    []*graph.Unit
	sources  []*graph.PipelineSource
	units    []*graph.Unit
	recorder *stages.Recorder
	display  *stages.Display
}

// buildPipeline wires the demo graph for cfg. arb may be nil when cfg.Display
// is off.
func buildPipeline(cfg cliconfig.Config, logger log.Logger, collector *metrics.Collector, arb *arbiter.Arbiter, out io.Writer) *pipeline {
	gctx := graph.NewContext()
	opts := []graph.Option{
		graph.WithContext(gctx),
		graph.WithLogger(logger),
		graph.WithMetrics(collector),
		graph.WithRateBufferSize(cfg.RateBufferSize),
	}

	p := &pipeline{recorder: stages.NewRecorder()}

	pool := graph.NewPool(stages.NewSumJoin("value", "sum"), opts...)
	rec := graph.New(p.recorder, opts...)
	pool.Unit().AddChild(rec)
	p.units = append(p.units, pool.Unit(), rec)

	if cfg.Display && arb != nil {
		p.display = stages.NewDisplay(gctx, arb, out)
		disp := graph.New(p.display, opts...)
		pool.Unit().AddChild(disp)
		p.units = append(p.units, disp)
	}

	for i := 0; i < cfg.Senders; i++ {
		gen := stages.NewGenerator("value", cfg.FramesPerSender).WithStart(int64(i) * 1000)
		root := graph.New(gen, opts...)

		sink := graph.NewPipelineSink(cfg.Policy(), cfg.QueueCapacity, opts...)
		root.AddChild(sink.Unit())

		src := graph.NewPipelineSource(sink, cfg.TargetFPS, opts...)
		src.SetPollTimeout(cfg.PollTimeout)

		heavy := graph.New(stages.NewThrottle(cfg.StageCost, throttleReportEvery), opts...)
		src.Unit().AddChild(heavy)
		heavy.AddChild(pool.Unit())

		p.roots = append(p.roots, root)
		p.sources = append(p.sources, src)
		p.units = append(p.units, root, sink.Unit(), src.Unit(), heavy)
	}
	return p
}

// runnerOptions registers the pipeline's roots and sources.
func (p *pipeline) runnerOptions() []runner.Option {
	var opts []runner.Option
	for _, r := range p.roots {
		opts = append(opts, runner.WithRoot(r))
	}
	for _, s := range p.sources {
		opts = append(opts, runner.WithPipelineSource(s))
	}
	return opts
}

// logSummary logs the measured rates of every unit.
func (p *pipeline) logSummary(logger log.Logger) {
	for _, u := range p.units {
		logger.Info("unit summary",
			log.Unit(u.Name()),
			log.String("type", u.TypeName()),
			log.Float64("unit_rate", u.UnitRate()),
			log.Float64("current_rate", u.CurrentRate()),
		)
	}
	logger.Info("pipeline summary",
		log.Int("joined_framesets", p.recorder.Len()),
		log.Bool("flushed", p.recorder.Flushed()),
	)
}
