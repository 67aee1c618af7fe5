package worker

import (
	"fmt"
	"os"

	sys "golang.org/x/sys/unix"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
)

// MmapRawWorker maps a raw-frame file into memory once with mmap (the same
// call go4vl's MapMemoryBuffer uses for V4L2 capture buffers) and serves
// each frame as a slice into that mapping, copied into the caller's
// Buffer. Frame i occupies byte range [i*frameSize, (i+1)*frameSize).
type MmapRawWorker struct {
	cfg   config.WorkerConfig
	alloc *buffer.Allocator

	file    *os.File
	mapping []byte

	width, height, bpp int
	frameSize           int64
	totalFrames         int
	cur                 int

	poolID uint64
}

// NewMmapRawWorker constructs a raw memory-mapped file worker. alloc must
// be a Normal allocator (see buffer.NewNormalAllocator); this Worker's
// working pool is created in Open.
func NewMmapRawWorker(cfg config.WorkerConfig, alloc *buffer.Allocator) *MmapRawWorker {
	return &MmapRawWorker{cfg: cfg, alloc: alloc}
}

func (w *MmapRawWorker) Open() error {
	f, err := os.Open(w.cfg.File.Path)
	if err != nil {
		return fmt.Errorf("mmap_raw: open %s: %w", w.cfg.File.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap_raw: stat: %w", err)
	}
	size := info.Size()
	if size == 0 {
		f.Close()
		return fmt.Errorf("mmap_raw: empty file %s", w.cfg.File.Path)
	}

	mapping, err := sys.Mmap(int(f.Fd()), 0, int(size), sys.PROT_READ, sys.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap_raw: mmap: %w", err)
	}

	w.file = f
	w.mapping = mapping
	w.width = w.cfg.Output.Width
	w.height = w.cfg.Output.Height
	w.bpp = w.cfg.Output.BitsPerPixel / 8
	if w.bpp == 0 {
		w.bpp = 1
	}
	w.frameSize = int64(w.width * w.height * w.bpp)
	if w.frameSize <= 0 {
		w.cleanup()
		return fmt.Errorf("mmap_raw: invalid output geometry %+v", w.cfg.Output)
	}
	w.totalFrames = int(size / w.frameSize)
	w.cur = w.cfg.File.StartFrame

	id, err := w.alloc.AllocatePoolWithBuffers(w.cfg.BufferCount(), uint64(w.frameSize), "mmap_raw", "raw")
	if err != nil {
		w.cleanup()
		return fmt.Errorf("mmap_raw: allocate pool: %w", err)
	}
	w.poolID = id
	return nil
}

func (w *MmapRawWorker) cleanup() {
	if w.mapping != nil {
		sys.Munmap(w.mapping)
		w.mapping = nil
	}
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

func (w *MmapRawWorker) Close() error {
	w.cleanup()
	return nil
}

func (w *MmapRawWorker) Injects() bool { return false }

// FillBuffer copies frame frameIndex into buf's own memory, wrapping the
// requested index modulo the frame count — callers that want looping
// playback (spec.md scenario S1) pass consume_index unmodified and rely on
// this wraparound rather than looping externally.
func (w *MmapRawWorker) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	if w.mapping == nil {
		return ErrNotOpen
	}
	if w.totalFrames == 0 {
		return ErrAtEnd
	}
	idx := frameIndex % w.totalFrames
	off := int64(idx) * w.frameSize
	if off+w.frameSize > int64(len(w.mapping)) {
		return ErrAtEnd
	}
	if buf.Size() < uint64(w.frameSize) {
		return fmt.Errorf("mmap_raw: buffer size %d smaller than frame size %d", buf.Size(), w.frameSize)
	}

	dst := buf.PlaneData(0)
	copy(dst, w.mapping[off:off+w.frameSize])

	buf.SetImageMetadataFrom(buffer.FrameDescriptor{
		Width:       uint32(w.width),
		Height:      uint32(w.height),
		PixelFormat: "raw",
		PlaneData:   [buffer.MaxPlanes][]byte{dst},
	})
	return nil
}

func (w *MmapRawWorker) Seek(index int) error {
	if w.totalFrames > 0 && index >= w.totalFrames {
		return ErrAtEnd
	}
	w.cur = index
	return nil
}

func (w *MmapRawWorker) SeekToBegin() error { return w.Seek(0) }
func (w *MmapRawWorker) SeekToEnd() error   { return w.Seek(w.totalFrames - 1) }
func (w *MmapRawWorker) Skip(delta int) error {
	return w.Seek(w.cur + delta)
}

func (w *MmapRawWorker) CurrentFrameIndex() int { return w.cur }
func (w *MmapRawWorker) TotalFrames() int       { return w.totalFrames }
func (w *MmapRawWorker) HasMoreFrames() bool    { return w.cur < w.totalFrames-1 }
func (w *MmapRawWorker) IsAtEnd() bool          { return w.cur >= w.totalFrames-1 }

func (w *MmapRawWorker) Width() int          { return w.width }
func (w *MmapRawWorker) Height() int         { return w.height }
func (w *MmapRawWorker) BytesPerPixel() int  { return w.bpp }
func (w *MmapRawWorker) FrameSize() int64    { return w.frameSize }
func (w *MmapRawWorker) FileSize() int64     { return int64(len(w.mapping)) }
func (w *MmapRawWorker) WorkerType() string  { return "mmap_raw" }
func (w *MmapRawWorker) OutputPoolID() uint64 { return w.poolID }
