package frame

// PixelFormat is the memory layout of a VideoFrame pixel.
type PixelFormat int

const (
	PixelFormatBGR24 PixelFormat = iota
	PixelFormatRGB24
	PixelFormatARGB32
	PixelFormatABGR32
	PixelFormatRGBA32
	PixelFormatBGRA32
	PixelFormatYUV422
	PixelFormatLuminance
)

// Channels returns the number of bytes per pixel, or 0 for unknown formats.
func (p PixelFormat) Channels() int {
	switch p {
	case PixelFormatRGB24, PixelFormatBGR24:
		return 3
	case PixelFormatRGBA32, PixelFormatARGB32, PixelFormatBGRA32, PixelFormatABGR32:
		return 4
	case PixelFormatYUV422:
		return 2
	case PixelFormatLuminance:
		return 1
	default:
		return 0
	}
}

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGR24:
		return "BGR24"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatARGB32:
		return "ARGB32"
	case PixelFormatABGR32:
		return "ABGR32"
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatBGRA32:
		return "BGRA32"
	case PixelFormatYUV422:
		return "YUV422"
	case PixelFormatLuminance:
		return "Luminance"
	default:
		return "Unknown"
	}
}
