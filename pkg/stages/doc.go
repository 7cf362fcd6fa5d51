// Package stages holds small, algorithm-free processors for building and
// exercising graphs: a counting source, pass-through and recording nodes, a
// throttling stage, a summing pool join, a feedback accumulator and a display
// that renders through an arbiter.
package stages
