package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/iobuf"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
	"github.com/vladimirvivien/zerocopyvideo/decode"
	"github.com/vladimirvivien/zerocopyvideo/internal/logx"
)

// fillBufferPollInterval bounds how long FillBuffer waits for the ingest
// goroutine to publish another frame before returning, so a productionline
// producer thread driving an RTSPWorker still periodically rechecks its
// running flag instead of blocking indefinitely.
const fillBufferPollInterval = 200 * time.Millisecond

// RTSPWorker ingests a network stream and publishes decoded frames by
// injection only — there is no pull-side FillBuffer for a live source.
// Outstanding decoded-but-not-yet-consumed frames are capped by an
// iobuf.BoundedPool acting as a counting semaphore sized to the decoder's
// depth: the ingest goroutine blocks acquiring a slot before it will
// decode and inject another frame, and a slot is only returned once the
// consumer actually releases the published buffer back to the free queue
// (via the release callback installed at inject time), so a slow consumer
// applies backpressure all the way back to the decode loop instead of
// growing an unbounded in-memory queue (spec.md scenario S5). reorder is a
// small ring that lets a handful of out-of-order frames (by PTS) settle
// before injection, absorbing the jitter a network ingest routinely sees;
// because ffgo reuses the same borrowed AVFrame on every ReadFrame call,
// anything held across more than one decode — the reorder ring, and the
// published Buffer itself — is backed by an owned clone from framePool
// rather than the borrowed frame directly.
type RTSPWorker struct {
	cfg   config.WorkerConfig
	alloc *buffer.Allocator

	dec       decoderSource
	framePool *decode.FramePool

	depth *iobuf.BoundedPool[uint32]

	reorderMu sync.Mutex
	reorder   []*decode.Frame
	reorderN  int

	frameReady chan struct{}

	cancel context.CancelFunc
	done   chan struct{}

	poolID uint64
	cur    int
}

const (
	defaultRTSPDepth   = 4
	defaultReorderSize = 3
)

// NewRTSPWorker constructs an injection-only RTSP worker. alloc must be an
// AVFrame allocator.
func NewRTSPWorker(cfg config.WorkerConfig, alloc *buffer.Allocator) *RTSPWorker {
	return &RTSPWorker{cfg: cfg, alloc: alloc, reorderN: defaultReorderSize}
}

func (w *RTSPWorker) Open() error {
	var opts []decode.Option
	if w.cfg.Decoder.EnableHardware {
		opts = append(opts, decode.WithHWDevice(w.cfg.Decoder.HWAccelDevice))
	}
	dec, err := decode.NewDecoder(w.cfg.File.Path, opts...)
	if err != nil {
		return fmt.Errorf("ffmpeg_rtsp: open stream: %w", err)
	}
	w.dec = dec

	depth := defaultRTSPDepth
	w.depth = iobuf.NewBoundedPool[uint32](depth)
	w.depth.Fill(func() uint32 { return 0 })
	// Bounded by the most frames that can be outstanding at once: one per
	// depth slot plus one per reorder-ring entry.
	w.framePool = decode.NewFramePool(depth + w.reorderN + 1)

	id, err := w.alloc.AllocatePoolWithBuffers(0, 0, "ffmpeg_rtsp", "decoded")
	if err != nil {
		dec.Close()
		return fmt.Errorf("ffmpeg_rtsp: allocate pool: %w", err)
	}
	w.poolID = id
	w.frameReady = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.ingestLoop(ctx)
	return nil
}

// ingestLoop decodes frames continuously, acquiring a depth slot before
// each decode so a full consumer-side queue stalls the loop rather than
// accumulating frames in memory.
func (w *RTSPWorker) ingestLoop(ctx context.Context) {
	defer close(w.done)
	for {
		slot, err := w.depth.Get()
		if err != nil {
			// Every depth slot is held by a published, unreleased frame:
			// wait for the consumer to release one, or for Close.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
				continue
			}
		}

		borrowed, err := w.dec.ReadFrame()
		if err != nil {
			w.depth.Put(slot)
			logx.Warn("ffmpeg_rtsp: decode ended", "err", err)
			return
		}

		// ffgo's decoder reuses the same borrowed AVFrame on every
		// ReadFrame call, so a frame held in the reorder ring past this
		// iteration must be cloned into one this worker owns first.
		frame, err := w.framePool.Clone(borrowed)
		if err != nil {
			w.depth.Put(slot)
			logx.Warn("ffmpeg_rtsp: clone decoded frame", "err", err)
			return
		}

		released := false
		releaseSlot := func() {
			if !released {
				released = true
				w.depth.Put(slot)
			}
		}

		ready := w.settle(frame)
		for _, f := range ready {
			if _, err := w.alloc.InjectDecoderFrame(w.poolID, f, releaseSlot); err != nil {
				logx.Warn("ffmpeg_rtsp: inject decoder frame", "err", err)
				f.Release()
				releaseSlot()
			}
			w.cur++
			select {
			case w.frameReady <- struct{}{}:
			default:
			}
		}
		if len(ready) == 0 {
			// Still priming the reorder ring: nothing was published for
			// this slot, so nothing will ever call releaseSlot for it.
			releaseSlot()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// settle buffers frame in a small PTS-ordered ring and releases frames
// once reorderN+1 have accumulated, so a handful of frames that arrive
// slightly out of order (common over RTSP/RTP) are re-ordered before
// injection rather than handed to the consumer out of sequence.
func (w *RTSPWorker) settle(frame *decode.Frame) []*decode.Frame {
	w.reorderMu.Lock()
	defer w.reorderMu.Unlock()

	w.reorder = append(w.reorder, frame)
	if len(w.reorder) <= w.reorderN {
		return nil
	}

	// Insertion-sort by PTS; reorderN is small (single digits) so this is
	// cheaper than a heap and keeps the ring's contents visibly ordered.
	for i := len(w.reorder) - 1; i > 0 && w.reorder[i].PTS() < w.reorder[i-1].PTS(); i-- {
		w.reorder[i], w.reorder[i-1] = w.reorder[i-1], w.reorder[i]
	}

	oldest := w.reorder[0]
	w.reorder = w.reorder[1:]
	return []*decode.Frame{oldest}
}

func (w *RTSPWorker) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
	if w.framePool != nil {
		w.framePool.Close()
	}
	if w.dec != nil {
		return w.dec.Close()
	}
	return nil
}

func (w *RTSPWorker) Injects() bool { return true }

// FillBuffer drives the injection-mode contract: the ingest goroutine
// already decodes and injects frames into the working pool on its own, so
// this call just waits for the next one to land (or the poll interval to
// elapse) and returns, giving a productionline producer thread a steady
// heartbeat to recheck its running flag against instead of blocking on the
// stream forever.
func (w *RTSPWorker) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	select {
	case <-w.frameReady:
		return nil
	case <-w.done:
		return ErrAtEnd
	case <-time.After(fillBufferPollInterval):
		return ErrNoFrameYet
	}
}

func (w *RTSPWorker) Seek(index int) error     { return fmt.Errorf("ffmpeg_rtsp: seek is not supported on a live stream") }
func (w *RTSPWorker) SeekToBegin() error       { return fmt.Errorf("ffmpeg_rtsp: seek is not supported on a live stream") }
func (w *RTSPWorker) SeekToEnd() error         { return fmt.Errorf("ffmpeg_rtsp: seek is not supported on a live stream") }
func (w *RTSPWorker) Skip(delta int) error     { return fmt.Errorf("ffmpeg_rtsp: seek is not supported on a live stream") }
func (w *RTSPWorker) CurrentFrameIndex() int   { return w.cur }
func (w *RTSPWorker) TotalFrames() int         { return -1 }
func (w *RTSPWorker) HasMoreFrames() bool      { return true }
func (w *RTSPWorker) IsAtEnd() bool            { return false }

func (w *RTSPWorker) Width() int           { return w.dec.Width() }
func (w *RTSPWorker) Height() int          { return w.dec.Height() }
func (w *RTSPWorker) BytesPerPixel() int   { return 0 }
func (w *RTSPWorker) FrameSize() int64     { return 0 }
func (w *RTSPWorker) FileSize() int64      { return 0 }
func (w *RTSPWorker) WorkerType() string   { return "ffmpeg_rtsp" }
func (w *RTSPWorker) OutputPoolID() uint64 { return w.poolID }
