package decode

import (
	"github.com/obinnaokechukwu/ffgo"
)

// Frame wraps a decoded video frame owned by ffgo. It implements
// buffer.PlaneSource so the avframe allocator backend can hand its plane
// data out through a Buffer without copying.
type Frame struct {
	w *ffgo.FrameWrapper

	// pool is set only for frames obtained via FramePool.Clone; Release
	// then returns the frame to pool instead of freeing it.
	pool *FramePool
}

func wrapFrame(w *ffgo.FrameWrapper) *Frame {
	if w == nil {
		return nil
	}
	return &Frame{w: w}
}

// Width returns the frame's width in pixels.
func (f *Frame) Width() int { return f.w.Width() }

// Height returns the frame's height in pixels.
func (f *Frame) Height() int { return f.w.Height() }

// Linesize returns the stride, in bytes, of the given plane.
func (f *Frame) Linesize(plane int) int { return f.w.Linesize(plane) }

// PixelFormat returns the pipeline's string name for the frame's pixel
// format, e.g. "yuv420p". Unrecognized formats return "unknown".
func (f *Frame) PixelFormat() string { return pixelFormatName(f.w.PixelFormat()) }

// PTS returns the frame's presentation timestamp, in the decoder's time
// base.
func (f *Frame) PTS() int64 { return f.w.PTS() }

// IsKeyFrame reports whether the frame is a keyframe.
func (f *Frame) IsKeyFrame() bool { return f.w.IsKeyFrame() }

// Plane returns the i'th plane's backing bytes, or nil if the plane does
// not exist. Implements buffer.PlaneSource.
func (f *Frame) Plane(i int) []byte { return f.w.Data(i) }

// Release returns the frame's underlying AVFrame to FFmpeg, or — for a
// Frame obtained via FramePool.Clone — back to its owning pool for reuse.
// After Release the Frame must not be used.
func (f *Frame) Release() error {
	if f.pool != nil {
		p := f.pool
		f.pool = nil
		return p.Put(f)
	}
	return f.w.Free()
}

func pixelFormatName(pf ffgo.PixelFormat) string {
	switch pf {
	case ffgo.PixelFormatYUV420P:
		return "yuv420p"
	case ffgo.PixelFormatYUVJ420P:
		return "yuvj420p"
	case ffgo.PixelFormatYUV422P:
		return "yuv422p"
	case ffgo.PixelFormatYUV444P:
		return "yuv444p"
	case ffgo.PixelFormatNV12:
		return "nv12"
	case ffgo.PixelFormatNV21:
		return "nv21"
	case ffgo.PixelFormatRGB24:
		return "rgb24"
	case ffgo.PixelFormatBGR24:
		return "bgr24"
	case ffgo.PixelFormatRGBA:
		return "rgba"
	case ffgo.PixelFormatBGRA:
		return "bgra"
	case ffgo.PixelFormatARGB:
		return "argb"
	case ffgo.PixelFormatABGR:
		return "abgr"
	case ffgo.PixelFormatGray8:
		return "gray8"
	default:
		return "unknown"
	}
}
