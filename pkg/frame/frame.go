package frame

import (
	"fmt"
	"time"
	"unsafe"
)

// Frame is a size-tagged payload with a runtime type name.
type Frame interface {
	// TypeName identifies the concrete type in a Registry.
	TypeName() string

	// Size is the payload size in bytes.
	Size() int
}

// DataFrame holds an opaque byte payload.
type DataFrame struct {
	data []byte
}

// NewDataFrame allocates a zeroed payload of size bytes.
func NewDataFrame(size int) *DataFrame {
	return &DataFrame{data: make([]byte, size)}
}

// NewDataFrameFrom wraps b without copying it.
func NewDataFrameFrom(b []byte) *DataFrame {
	return &DataFrame{data: b}
}

// Data returns the payload. Callers must not modify it once the frame is shared.
func (f *DataFrame) Data() []byte { return f.data }

// MutableData returns the payload for the producing unit to fill in.
func (f *DataFrame) MutableData() []byte { return f.data }

func (f *DataFrame) Size() int        { return len(f.data) }
func (f *DataFrame) TypeName() string { return "DataFrame" }

// ValueFrame carries a single typed value.
type ValueFrame[T any] struct {
	value T
}

// NewValueFrame returns a frame holding v.
func NewValueFrame[T any](v T) *ValueFrame[T] {
	return &ValueFrame[T]{value: v}
}

// Value returns the carried value.
func (f *ValueFrame[T]) Value() T { return f.value }

func (f *ValueFrame[T]) Size() int {
	return int(unsafe.Sizeof(f.value))
}

func (f *ValueFrame[T]) TypeName() string {
	var zero T
	return fmt.Sprintf("ValueFrame[%T]", zero)
}

// ValueOf extracts the value of a ValueFrame[T]. It reports false for nil
// frames and frames of any other type.
func ValueOf[T any](f Frame) (T, bool) {
	vf, ok := f.(*ValueFrame[T])
	if !ok || vf == nil {
		var zero T
		return zero, false
	}
	return vf.value, true
}

// VideoFrame is a DataFrame laid out as rows of pixels.
type VideoFrame struct {
	DataFrame

	width     int
	height    int
	channels  int // bytes per pixel
	widthStep int
	pts       time.Duration
}

// NewVideoFrame allocates a tightly packed frame.
func NewVideoFrame(width, height, channels int) *VideoFrame {
	return NewVideoFrameWithStep(width, height, channels, width*channels, 0)
}

// NewVideoFrameWithStep allocates a frame whose rows are widthStep bytes apart.
func NewVideoFrameWithStep(width, height, channels, widthStep int, pts time.Duration) *VideoFrame {
	return &VideoFrame{
		DataFrame: DataFrame{data: make([]byte, widthStep*height)},
		width:     width,
		height:    height,
		channels:  channels,
		widthStep: widthStep,
		pts:       pts,
	}
}

func (f *VideoFrame) Width() int         { return f.width }
func (f *VideoFrame) Height() int        { return f.height }
func (f *VideoFrame) Channels() int      { return f.channels }
func (f *VideoFrame) WidthStep() int     { return f.widthStep }
func (f *VideoFrame) PTS() time.Duration { return f.pts }
func (f *VideoFrame) TypeName() string   { return "VideoFrame" }

// Row returns the bytes of row y, without padding.
func (f *VideoFrame) Row(y int) []byte {
	start := y * f.widthStep
	return f.data[start : start+f.width*f.channels]
}

// FrameSet is one tick: one slot per declared stream.
type FrameSet []Frame

// Clone returns a new FrameSet sharing the same frames.
func (s FrameSet) Clone() FrameSet {
	if s == nil {
		return nil
	}
	out := make(FrameSet, len(s))
	copy(out, s)
	return out
}

// With returns a copy of s with f appended. The frames of s are shared.
func (s FrameSet) With(f Frame) FrameSet {
	out := make(FrameSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, f)
}
