package worker

import (
	"fmt"
	"os"
	"sync"

	"code.hybscloud.com/iobuf"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
)

// AsyncRawWorker reads raw frames from a file using a fixed number of
// concurrently outstanding reads rather than a single sequential mmap
// pass. The fixed queue depth is enforced by an iobuf.BoundedPool acting
// as a counting semaphore: FillBuffer acquires a slot before issuing its
// pread and releases it on return, so at most depth reads are ever
// in flight regardless of how many producers call FillBuffer concurrently.
type AsyncRawWorker struct {
	cfg   config.WorkerConfig
	alloc *buffer.Allocator

	mu   sync.Mutex
	file *os.File

	slots *iobuf.BoundedPool[int]

	width, height, bpp int
	frameSize           int64
	fileSize            int64
	totalFrames         int
	cur                 int

	poolID uint64
}

const defaultAsyncDepth = 8

// NewAsyncRawWorker constructs a raw async-read file worker. alloc must be
// a Normal allocator.
func NewAsyncRawWorker(cfg config.WorkerConfig, alloc *buffer.Allocator) *AsyncRawWorker {
	return &AsyncRawWorker{cfg: cfg, alloc: alloc}
}

func (w *AsyncRawWorker) Open() error {
	f, err := os.Open(w.cfg.File.Path)
	if err != nil {
		return fmt.Errorf("iouring_raw: open %s: %w", w.cfg.File.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("iouring_raw: stat: %w", err)
	}

	w.file = f
	w.fileSize = info.Size()
	w.width = w.cfg.Output.Width
	w.height = w.cfg.Output.Height
	w.bpp = w.cfg.Output.BitsPerPixel / 8
	if w.bpp == 0 {
		w.bpp = 1
	}
	w.frameSize = int64(w.width * w.height * w.bpp)
	if w.frameSize <= 0 {
		f.Close()
		return fmt.Errorf("iouring_raw: invalid output geometry %+v", w.cfg.Output)
	}
	w.totalFrames = int(w.fileSize / w.frameSize)
	w.cur = w.cfg.File.StartFrame

	depth := defaultAsyncDepth
	w.slots = iobuf.NewBoundedPool[int](depth)
	w.slots.Fill(func() int { return 0 })

	id, err := w.alloc.AllocatePoolWithBuffers(w.cfg.BufferCount(), uint64(w.frameSize), "iouring_raw", "raw")
	if err != nil {
		f.Close()
		return fmt.Errorf("iouring_raw: allocate pool: %w", err)
	}
	w.poolID = id
	return nil
}

func (w *AsyncRawWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	return nil
}

func (w *AsyncRawWorker) Injects() bool { return false }

// FillBuffer acquires a queue-depth slot, issues a ReadAt for frame
// frameIndex (looping modulo the frame count), and releases the slot
// before returning. A blocked ReadAt never holds more than one slot, so
// at most the configured depth can be outstanding at once.
func (w *AsyncRawWorker) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	if w.file == nil {
		return ErrNotOpen
	}
	if w.totalFrames == 0 {
		return ErrAtEnd
	}

	slot, err := w.slots.Get()
	if err != nil {
		return fmt.Errorf("iouring_raw: acquire read slot: %w", err)
	}
	defer w.slots.Put(slot)

	idx := frameIndex % w.totalFrames
	off := int64(idx) * w.frameSize
	if buf.Size() < uint64(w.frameSize) {
		return fmt.Errorf("iouring_raw: buffer size %d smaller than frame size %d", buf.Size(), w.frameSize)
	}

	dst := buf.PlaneData(0)
	n, err := w.file.ReadAt(dst[:w.frameSize], off)
	if err != nil {
		return fmt.Errorf("iouring_raw: read at offset %d: %w", off, err)
	}
	if int64(n) != w.frameSize {
		return fmt.Errorf("iouring_raw: short read: got %d bytes, want %d", n, w.frameSize)
	}

	buf.SetImageMetadataFrom(buffer.FrameDescriptor{
		Width:       uint32(w.width),
		Height:      uint32(w.height),
		PixelFormat: "raw",
		PlaneData:   [buffer.MaxPlanes][]byte{dst},
	})
	return nil
}

func (w *AsyncRawWorker) Seek(index int) error {
	if w.totalFrames > 0 && index >= w.totalFrames {
		return ErrAtEnd
	}
	w.cur = index
	return nil
}

func (w *AsyncRawWorker) SeekToBegin() error   { return w.Seek(0) }
func (w *AsyncRawWorker) SeekToEnd() error     { return w.Seek(w.totalFrames - 1) }
func (w *AsyncRawWorker) Skip(delta int) error { return w.Seek(w.cur + delta) }

func (w *AsyncRawWorker) CurrentFrameIndex() int { return w.cur }
func (w *AsyncRawWorker) TotalFrames() int       { return w.totalFrames }
func (w *AsyncRawWorker) HasMoreFrames() bool    { return w.cur < w.totalFrames-1 }
func (w *AsyncRawWorker) IsAtEnd() bool          { return w.cur >= w.totalFrames-1 }

func (w *AsyncRawWorker) Width() int          { return w.width }
func (w *AsyncRawWorker) Height() int         { return w.height }
func (w *AsyncRawWorker) BytesPerPixel() int  { return w.bpp }
func (w *AsyncRawWorker) FrameSize() int64    { return w.frameSize }
func (w *AsyncRawWorker) FileSize() int64     { return w.fileSize }
func (w *AsyncRawWorker) WorkerType() string  { return "iouring_raw" }
func (w *AsyncRawWorker) OutputPoolID() uint64 { return w.poolID }
