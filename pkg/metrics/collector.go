// Package metrics exports per-unit frame counters, rates and queue depths
// to Prometheus.
//
// A nil *Collector is valid and records nothing, so graph code can report
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rate adjustment directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Collector holds the framegraph metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	framesProcessed    *prometheus.CounterVec
	frameSetsEmitted   *prometheus.CounterVec
	contractViolations *prometheus.CounterVec
	rateAdjustments    *prometheus.CounterVec

	unitRate    *prometheus.GaugeVec
	currentRate *prometheus.GaugeVec
	queueDepth  *prometheus.GaugeVec

	processDuration *prometheus.HistogramVec
}

// NewCollector creates a collector whose metric names are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		framesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_processed_total",
				Help:      "FrameSets received by a unit",
			},
			[]string{"unit"},
		),
		frameSetsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "framesets_emitted_total",
				Help:      "FrameSets forwarded by a unit to its children",
			},
			[]string{"unit"},
		),
		contractViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contract_violations_total",
				Help:      "FrameSets emitted with the wrong number of frames",
			},
			[]string{"unit"},
		),
		rateAdjustments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_adjustments_total",
				Help:      "Rate adjustment requests issued by a unit",
			},
			[]string{"unit", "direction"},
		),
		unitRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unit_rate_fps",
				Help:      "Rate derived from the unit's own processing time",
			},
			[]string{"unit"},
		),
		currentRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_rate_fps",
				Help:      "Rate derived from the gap between calls",
			},
			[]string{"unit"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "FrameSets waiting in a pipeline queue",
			},
			[]string{"queue"},
		),
		processDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "process_duration_seconds",
				Help:      "Time spent in a single ProcessFrame or PostProcess call",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"unit"},
		),
	}
}

// Registry returns the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveProcess records one processing call of unit.
func (c *Collector) ObserveProcess(unit string, took time.Duration) {
	if c == nil {
		return
	}
	c.framesProcessed.WithLabelValues(unit).Inc()
	c.processDuration.WithLabelValues(unit).Observe(took.Seconds())
}

// ObserveEmitted counts n FrameSets forwarded by unit.
func (c *Collector) ObserveEmitted(unit string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.frameSetsEmitted.WithLabelValues(unit).Add(float64(n))
}

// ObserveContractViolation counts a stream-count violation.
func (c *Collector) ObserveContractViolation(unit string) {
	if c == nil {
		return
	}
	c.contractViolations.WithLabelValues(unit).Inc()
}

// SetRates publishes both rate estimates. Unknown rates (negative) are skipped.
func (c *Collector) SetRates(unit string, unitRate, currentRate float64) {
	if c == nil {
		return
	}
	if unitRate >= 0 {
		c.unitRate.WithLabelValues(unit).Set(unitRate)
	}
	if currentRate >= 0 {
		c.currentRate.WithLabelValues(unit).Set(currentRate)
	}
}

// SetQueueDepth publishes the depth of a named queue.
func (c *Collector) SetQueueDepth(queue string, depth int) {
	if c == nil {
		return
	}
	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveRateAdjustment counts a rate change request from unit.
func (c *Collector) ObserveRateAdjustment(unit, direction string) {
	if c == nil {
		return
	}
	c.rateAdjustments.WithLabelValues(unit, direction).Inc()
}
