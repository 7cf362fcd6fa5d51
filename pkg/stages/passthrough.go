package stages

import "github.com/bft-labs/framegraph/pkg/graph"

// Passthrough forwards every FrameSet unchanged.
type Passthrough struct {
	graph.BaseProcessor
}

// NewPassthrough returns a Passthrough.
func NewPassthrough() *Passthrough { return &Passthrough{} }
