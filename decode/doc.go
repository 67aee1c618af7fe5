// Package decode is a thin façade over github.com/obinnaokechukwu/ffgo,
// narrowed to the handful of operations the encoded-file and RTSP workers
// need: open a media file, pull decoded video frames, and release them.
//
// Frame wraps ffgo's *FrameWrapper and implements buffer.PlaneSource, so a
// decoded frame's planes can be handed to a Buffer without a copy (see
// buffer.Buffer.PlaneData and the avframe allocator backend in the buffer
// package). FramePool wraps ffgo's own frame-reuse pool so repeated decode
// calls do not churn AVFrame allocations.
package decode
