// Package imgsupport provides image format conversion utilities for
// decoded video frames, for callers that want a still image out of the
// pipeline (a snapshot tool, a test fixture) without pulling in a
// dedicated image-processing dependency.
//
// # Supported conversions
//
//   - planar 4:2:0 YUV (yuv420p, yuvj420p) to JPEG, via Go's standard
//     image/jpeg encoder over an image.YCbCr view of the frame's own
//     plane memory (no extra copy beyond what jpeg.Encode itself makes).
//
// # Usage
//
//	frame, err := dec.ReadFrame()
//	...
//	jpegData, err := imgsupport.FrameToJPEG(frame, 90)
//	...
//	os.WriteFile("snapshot.jpg", jpegData, 0644)
//
// # Limitations
//
//   - Only planar 4:2:0 YUV is supported; other pixel formats (NV12,
//     RGB variants) return an error rather than a silently wrong image.
package imgsupport
