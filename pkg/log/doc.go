// Package log provides the structured logging abstraction used by every
// framegraph component.
//
// Units, pipeline sources, pools, the arbiter and the runner all accept a
// Logger. The zerolog adapter is what the framegraph CLI wires in; the no-op
// logger is the default when nothing is configured, so embedding a graph in
// another program stays silent unless asked otherwise.
//
// # Usage
//
//	logger := log.NewZerologAdapter()
//	unit := graph.New(stage, graph.WithLogger(logger.With(log.String("region", "decode"))))
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing logging
// infrastructure. With must return a logger that prepends the given fields to
// every subsequent message.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
