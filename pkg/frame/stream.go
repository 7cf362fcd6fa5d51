package frame

// Stream describes one channel declared during negotiation.
type Stream interface {
	Name() string
}

// DataStream is the minimal Stream: just a name.
type DataStream struct {
	name string
}

// NewDataStream returns a stream called name.
func NewDataStream(name string) *DataStream {
	return &DataStream{name: name}
}

func (s *DataStream) Name() string { return s.name }

// VideoStream describes a stream of VideoFrames.
type VideoStream struct {
	name        string
	width       int
	height      int
	widthStep   int
	fps         float64 // not necessarily exact
	frameCount  int     // not necessarily exact
	pixelFormat PixelFormat
}

// VideoStreamOptions holds the geometry of a VideoStream.
type VideoStreamOptions struct {
	Width       int
	Height      int
	WidthStep   int
	FPS         float64
	FrameCount  int
	PixelFormat PixelFormat
}

// NewVideoStream returns a video stream called name. A zero WidthStep is
// derived from Width and the pixel format.
func NewVideoStream(name string, opts VideoStreamOptions) *VideoStream {
	if name == "" {
		name = "VideoStream"
	}
	step := opts.WidthStep
	if step == 0 {
		step = opts.Width * opts.PixelFormat.Channels()
	}
	return &VideoStream{
		name:        name,
		width:       opts.Width,
		height:      opts.Height,
		widthStep:   step,
		fps:         opts.FPS,
		frameCount:  opts.FrameCount,
		pixelFormat: opts.PixelFormat,
	}
}

func (s *VideoStream) Name() string             { return s.name }
func (s *VideoStream) Width() int               { return s.width }
func (s *VideoStream) Height() int              { return s.height }
func (s *VideoStream) WidthStep() int           { return s.widthStep }
func (s *VideoStream) FPS() float64             { return s.fps }
func (s *VideoStream) FrameCount() int          { return s.frameCount }
func (s *VideoStream) PixelFormat() PixelFormat { return s.pixelFormat }

// StreamSet is the ordered list of streams visible to a unit.
type StreamSet []Stream

// Append adds streams at the end of the set.
func (s *StreamSet) Append(streams ...Stream) {
	*s = append(*s, streams...)
}

// Len returns the number of streams.
func (s StreamSet) Len() int { return len(s) }

// IndexOf returns the index of the first stream called name, or -1.
func (s StreamSet) IndexOf(name string) int {
	for i, st := range s {
		if st.Name() == name {
			return i
		}
	}
	return -1
}

// Names lists the stream names in order.
func (s StreamSet) Names() []string {
	names := make([]string, len(s))
	for i, st := range s {
		names[i] = st.Name()
	}
	return names
}

// Clone returns a copy that can be appended to without affecting s.
func (s StreamSet) Clone() StreamSet {
	out := make(StreamSet, len(s))
	copy(out, s)
	return out
}
