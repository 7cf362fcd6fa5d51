package graph

import (
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/metrics"
)

// Option configures a Unit.
type Option func(*options)

type options struct {
	name           string
	ctx            *Context
	logger         log.Logger
	metrics        *metrics.Collector
	rateBufferSize int
}

func defaultOptions() *options {
	return &options{
		logger:         log.NewNoopLogger(),
		rateBufferSize: DefaultRateBufferSize,
	}
}

// WithName sets the unit name used in logs, metrics and errors.
// Units without a name get one from their Context.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithContext sets the shared context used to number unnamed units.
func WithContext(ctx *Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithMetrics makes the unit report into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithRateBufferSize sets the number of samples kept for rate estimates.
func WithRateBufferSize(n int) Option {
	return func(o *options) {
		o.rateBufferSize = n
	}
}
