package worker

import (
	"errors"
	"fmt"
	"io"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
	"github.com/vladimirvivien/zerocopyvideo/decode"
)

// EncodedFileWorker demuxes and decodes an encoded media file through the
// decode package's FFmpeg façade. Software decode normally copies each
// decoded frame into a Normal-allocator buffer (FillBuffer mode);
// hardware decode is injection-only, since a hardware frame's plane-0
// lives in device memory the pipeline must not memcpy out of.
type EncodedFileWorker struct {
	cfg config.WorkerConfig

	normalAlloc  *buffer.Allocator // used in memcpy mode
	avframeAlloc *buffer.Allocator // used in injection / zero-copy mode

	dec       decoderSource
	framePool *decode.FramePool // owned-clone source for the zero-copy path

	zeroCopy bool
	cur      int

	poolID uint64
}

// NewEncodedFileWorker constructs an encoded-file worker. normalAlloc is
// used when cfg.Decoder.EnableHardware is false (memcpy mode); avframeAlloc
// is used when it is true (zero-copy injection mode). Either allocator may
// be nil if the corresponding mode will never be used.
func NewEncodedFileWorker(cfg config.WorkerConfig, normalAlloc, avframeAlloc *buffer.Allocator) *EncodedFileWorker {
	return &EncodedFileWorker{cfg: cfg, normalAlloc: normalAlloc, avframeAlloc: avframeAlloc}
}

func (w *EncodedFileWorker) Open() error {
	var opts []decode.Option
	if w.cfg.Decoder.EnableHardware {
		opts = append(opts, decode.WithHWDevice(w.cfg.Decoder.HWAccelDevice))
	}
	dec, err := decode.NewDecoder(w.cfg.File.Path, opts...)
	if err != nil {
		return fmt.Errorf("ffmpeg_video_file: open decoder: %w", err)
	}
	w.dec = dec
	w.zeroCopy = w.cfg.Decoder.EnableHardware
	w.cur = w.cfg.File.StartFrame

	if w.zeroCopy {
		if w.avframeAlloc == nil {
			dec.Close()
			return fmt.Errorf("ffmpeg_video_file: hardware decode requires an AVFrame allocator")
		}
		// The pool starts empty; frames are published one at a time by
		// InjectDecoderFrame as the decoder produces them.
		id, err := w.avframeAlloc.AllocatePoolWithBuffers(0, 0, "ffmpeg_video_file", "decoded")
		if err != nil {
			dec.Close()
			return fmt.Errorf("ffmpeg_video_file: allocate pool: %w", err)
		}
		w.poolID = id
		// Unbounded: unlike RTSPWorker there is no depth semaphore pacing
		// injection here, so the clone pool simply grows idle frames to
		// match however many buffers a slow consumer leaves outstanding.
		w.framePool = decode.NewFramePool(0)
		return nil
	}

	if w.normalAlloc == nil {
		dec.Close()
		return fmt.Errorf("ffmpeg_video_file: software decode requires a Normal allocator")
	}
	frameSize := uint64(dec.Width() * dec.Height() * 3 / 2) // yuv420p default
	id, err := w.normalAlloc.AllocatePoolWithBuffers(w.cfg.BufferCount(), frameSize, "ffmpeg_video_file", "decoded")
	if err != nil {
		dec.Close()
		return fmt.Errorf("ffmpeg_video_file: allocate pool: %w", err)
	}
	w.poolID = id
	return nil
}

func (w *EncodedFileWorker) Close() error {
	if w.framePool != nil {
		w.framePool.Close()
	}
	if w.dec != nil {
		return w.dec.Close()
	}
	return nil
}

func (w *EncodedFileWorker) Injects() bool { return w.zeroCopy }

// FillBuffer decodes the next frame. In memcpy (software decode) mode it
// copies the frame's planes into buf; in zero-copy mode buf is ignored and
// the frame is instead published into the working pool via
// InjectNextFrame, satisfying the productionline injection-mode contract
// (a driving call still has to happen once per produced frame, it just
// doesn't pull into a pre-acquired buffer).
func (w *EncodedFileWorker) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	if w.zeroCopy {
		_, err := w.InjectNextFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrAtEnd
			}
			return fmt.Errorf("ffmpeg_video_file: inject: %w", err)
		}
		return nil
	}
	if w.dec == nil {
		return ErrNotOpen
	}

	frame, err := w.dec.ReadFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrAtEnd
		}
		return fmt.Errorf("ffmpeg_video_file: decode: %w", err)
	}
	// frame is decoder-owned (ffgo reuses it internally on the next
	// ReadFrame call); it must not be Released here, only the clones this
	// worker takes ownership of via framePool are.

	var fd buffer.FrameDescriptor
	fd.Width = uint32(frame.Width())
	fd.Height = uint32(frame.Height())
	fd.PixelFormat = frame.PixelFormat()
	dst := buf.PlaneData(0)
	offset := 0
	for i := 0; i < buffer.MaxPlanes; i++ {
		src := frame.Plane(i)
		if src == nil {
			continue
		}
		fd.Linesize[i] = uint32(frame.Linesize(i))
		if offset+len(src) > len(dst) {
			return fmt.Errorf("ffmpeg_video_file: decoded frame larger than buffer (need >= %d more bytes)", offset+len(src)-len(dst))
		}
		copy(dst[offset:offset+len(src)], src)
		offset += len(src)
	}
	buf.SetImageMetadataFrom(fd)
	w.cur++
	return nil
}

// InjectNextFrame decodes the next frame and publishes it into the working
// pool via the AVFrame allocator, without copying. Valid only in zero-copy
// mode; returns io.EOF once the input is exhausted.
func (w *EncodedFileWorker) InjectNextFrame() (*buffer.Buffer, error) {
	if !w.zeroCopy {
		return nil, fmt.Errorf("ffmpeg_video_file: InjectNextFrame requires hardware decode")
	}
	borrowed, err := w.dec.ReadFrame()
	if err != nil {
		return nil, err
	}
	// The decoder reuses the same borrowed AVFrame on the next ReadFrame
	// call, so the published Buffer must be backed by an owned clone
	// rather than the borrowed frame itself.
	frame, err := w.framePool.Clone(borrowed)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg_video_file: clone decoded frame: %w", err)
	}
	buf, err := w.avframeAlloc.InjectDecoderFrame(w.poolID, frame, nil)
	if err != nil {
		frame.Release()
		return nil, err
	}
	w.cur++
	return buf, nil
}

// Seek is frame-index-only in name: an encoded container has no fixed
// frame size to compute a byte offset from, so only index 0 (rewind to
// the start) is meaningful here. Any other index returns an error rather
// than silently approximating a timestamp.
func (w *EncodedFileWorker) Seek(index int) error {
	if index != 0 {
		return fmt.Errorf("ffmpeg_video_file: arbitrary frame-index seek is not supported, only 0 (rewind)")
	}
	if err := w.dec.Seek(0); err != nil {
		return err
	}
	w.cur = 0
	return nil
}
func (w *EncodedFileWorker) SeekToBegin() error   { return w.Seek(0) }
func (w *EncodedFileWorker) SeekToEnd() error     { return fmt.Errorf("ffmpeg_video_file: seek to end is not supported") }
func (w *EncodedFileWorker) Skip(delta int) error { return fmt.Errorf("ffmpeg_video_file: frame skip is not supported") }

func (w *EncodedFileWorker) CurrentFrameIndex() int { return w.cur }

// TotalFrames returns the demuxer's estimated frame count (average frame
// rate times container duration) when the container reports both, so a
// finite software-decoded file lets ProductionLine stop its cursor at the
// right place instead of looping forever. It falls back to the infinite
// sentinel -1 when either is unreported (common for some containers, and
// always true in zero-copy mode where EOF is the only way to know the
// input ended).
func (w *EncodedFileWorker) TotalFrames() int {
	if w.zeroCopy || w.dec == nil {
		return -1
	}
	if n := w.dec.FrameCount(); n > 0 {
		return int(n)
	}
	return -1
}

func (w *EncodedFileWorker) HasMoreFrames() bool { return true }
func (w *EncodedFileWorker) IsAtEnd() bool        { return false }

func (w *EncodedFileWorker) Width() int          { return w.dec.Width() }
func (w *EncodedFileWorker) Height() int         { return w.dec.Height() }
func (w *EncodedFileWorker) BytesPerPixel() int  { return 0 } // encoded source, not fixed-geometry raw
func (w *EncodedFileWorker) FrameSize() int64    { return 0 }
func (w *EncodedFileWorker) FileSize() int64     { return 0 }
func (w *EncodedFileWorker) WorkerType() string   { return "ffmpeg_video_file" }
func (w *EncodedFileWorker) OutputPoolID() uint64 { return w.poolID }
