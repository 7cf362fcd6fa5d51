// Package frame defines the data model that flows through a framegraph:
// Frames, FrameSets, Streams and StreamSets, plus the registry that maps
// frame type names to constructors.
//
// A Frame is created by one unit and may be handed to many children at once.
// From that point on it is shared by reference and must be treated as
// read-only. A FrameSet carries exactly one Frame slot per Stream its
// producer declared during negotiation; slots may be nil for streams that
// carry nothing on a given tick.
//
// Frame types are registered explicitly:
//
//	reg := frame.NewRegistry()
//	frame.RegisterBuiltins(reg)
//	reg.MustRegister("FlowFrame", func() frame.Frame { return &FlowFrame{} })
package frame
