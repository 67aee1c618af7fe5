package decode

import (
	"errors"
	"io"
	"time"

	"github.com/obinnaokechukwu/ffgo"
)

// ErrNoVideoStream is returned by NewDecoder when the input has no video
// stream to decode.
var ErrNoVideoStream = errors.New("decode: input has no video stream")

// Options configures a Decoder.
type Options struct {
	// HWDevice names a hardware-acceleration device ("cuda", "vaapi",
	// "videotoolbox"); empty disables hardware acceleration.
	HWDevice string
}

// Option is a functional option for NewDecoder, mirroring the rest of the
// pipeline's configuration style.
type Option func(*Options)

// WithHWDevice enables hardware-accelerated decoding via the named device.
func WithHWDevice(device string) Option {
	return func(o *Options) { o.HWDevice = device }
}

// Decoder opens a single media file and yields decoded video frames.
// Decoder is not safe for concurrent use from multiple goroutines.
type Decoder struct {
	d   *ffgo.Decoder
	opt Options
}

// NewDecoder opens path for decoding. It returns ErrNoVideoStream if the
// input has no video stream; the encoded-file and RTSP workers both
// require one.
func NewDecoder(path string, options ...Option) (*Decoder, error) {
	var opt Options
	for _, o := range options {
		o(&opt)
	}

	var ffOpts []ffgo.DecoderOption
	if opt.HWDevice != "" {
		ffOpts = append(ffOpts, ffgo.WithHWDevice(opt.HWDevice))
	}
	ffOpts = append(ffOpts, ffgo.WithStreams(ffgo.MediaTypeVideo))

	fd, err := ffgo.NewDecoder(path, ffOpts...)
	if err != nil {
		return nil, err
	}
	if !fd.HasVideo() {
		fd.Close()
		return nil, ErrNoVideoStream
	}
	if err := fd.OpenVideoDecoder(); err != nil {
		fd.Close()
		return nil, err
	}
	return &Decoder{d: fd, opt: opt}, nil
}

// Width returns the video stream's frame width.
func (d *Decoder) Width() int { return d.d.VideoStream().Width }

// Height returns the video stream's frame height.
func (d *Decoder) Height() int { return d.d.VideoStream().Height }

// Duration returns the input's total duration, or 0 if unknown.
func (d *Decoder) Duration() time.Duration { return d.d.Duration() }

// FrameCount estimates the number of frames in the video stream from its
// average frame rate and container duration, returning 0 if either is
// unreported by the demuxer. This is a demuxer-metadata estimate, not an
// exact count: variable frame rate content or an imprecise container
// duration will make it approximate.
func (d *Decoder) FrameCount() int64 {
	fr := d.d.VideoStream().FrameRate
	if fr.Den == 0 || fr.Num == 0 {
		return 0
	}
	dur := d.Duration()
	if dur <= 0 {
		return 0
	}
	return int64(dur.Seconds() * float64(fr.Num) / float64(fr.Den))
}

// ReadFrame decodes and returns the next video frame. It returns io.EOF
// once the input is exhausted. ffgo's own ReadFrame signals that by
// returning (nil, nil) rather than an error, so that sentinel is
// translated here into a real error every caller can match with
// errors.Is.
func (d *Decoder) ReadFrame() (*Frame, error) {
	return frameFromReadResult(d.d.ReadFrame())
}

// frameFromReadResult applies ffgo's (nil, nil)-means-EOF convention to a
// raw ffgo.Decoder.ReadFrame result. Split out from ReadFrame so the
// translation can be exercised directly without an open decode session.
func frameFromReadResult(fw *ffgo.FrameWrapper, err error) (*Frame, error) {
	if err != nil {
		return nil, err
	}
	if fw == nil {
		return nil, io.EOF
	}
	return wrapFrame(fw), nil
}

// Seek repositions the decoder to the given timestamp, flushing any
// buffered frames.
func (d *Decoder) Seek(ts time.Duration) error { return d.d.Seek(ts) }

// Close releases the underlying FFmpeg decode context. Safe to call more
// than once.
func (d *Decoder) Close() error { return d.d.Close() }
