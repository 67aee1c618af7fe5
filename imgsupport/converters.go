package imgsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Frame is the minimal plane-accessor shape imgsupport needs from a
// decoded frame; decode.Frame satisfies it structurally.
type Frame interface {
	Width() int
	Height() int
	Linesize(plane int) int
	PixelFormat() string
	Plane(i int) []byte
}

// FrameToJPEG encodes f as a JPEG at the given quality (1-100). Only
// planar 4:2:0 YUV formats are supported (yuv420p, yuvj420p — the common
// output of software H.264/HEVC decode); anything else returns an error
// naming the unsupported format rather than producing a corrupt image.
func FrameToJPEG(f Frame, quality int) ([]byte, error) {
	switch f.PixelFormat() {
	case "yuv420p", "yuvj420p":
	default:
		return nil, fmt.Errorf("imgsupport: unsupported pixel format %q, only yuv420p/yuvj420p", f.PixelFormat())
	}

	img := &image.YCbCr{
		Y:              f.Plane(0),
		Cb:             f.Plane(1),
		Cr:             f.Plane(2),
		YStride:        f.Linesize(0),
		CStride:        f.Linesize(1),
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width(), f.Height()),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imgsupport: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
