package productionline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/registry"
	"github.com/vladimirvivien/zerocopyvideo/worker"
)

// fakeInjectingWorker is a minimal worker.Base stand-in for an
// injection-mode Worker (RTSPWorker, zero-copy EncodedFileWorker) that
// publishes buffers itself rather than being filled. It lets the
// injection branch of ProductionLine.produce be exercised without a real
// FFmpeg stream, which is the coverage gap that let a FillBuffer contract
// mismatch between ProductionLine and the real injecting Workers go
// unnoticed.
type fakeInjectingWorker struct {
	alloc     *buffer.Allocator
	poolID    uint64
	frameSize uint64

	injected atomic.Int64
	exhaust  atomic.Bool
}

func (w *fakeInjectingWorker) Open() error {
	id, err := w.alloc.AllocatePoolWithBuffers(0, 0, "fake_injecting", "decoded")
	if err != nil {
		return err
	}
	w.poolID = id
	return nil
}

func (w *fakeInjectingWorker) Close() error  { return nil }
func (w *fakeInjectingWorker) Injects() bool { return true }

func (w *fakeInjectingWorker) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	if w.exhaust.Load() {
		return worker.ErrAtEnd
	}
	if _, err := w.alloc.InjectBufferToPool(w.poolID, w.frameSize, buffer.QueueFilled); err != nil {
		return err
	}
	w.injected.Add(1)
	return nil
}

func (w *fakeInjectingWorker) Seek(int) error         { return nil }
func (w *fakeInjectingWorker) SeekToBegin() error     { return nil }
func (w *fakeInjectingWorker) SeekToEnd() error       { return nil }
func (w *fakeInjectingWorker) Skip(int) error         { return nil }
func (w *fakeInjectingWorker) CurrentFrameIndex() int { return int(w.injected.Load()) }
func (w *fakeInjectingWorker) TotalFrames() int       { return -1 }
func (w *fakeInjectingWorker) HasMoreFrames() bool    { return true }
func (w *fakeInjectingWorker) IsAtEnd() bool          { return false }

func (w *fakeInjectingWorker) Width() int           { return 0 }
func (w *fakeInjectingWorker) Height() int          { return 0 }
func (w *fakeInjectingWorker) BytesPerPixel() int   { return 0 }
func (w *fakeInjectingWorker) FrameSize() int64     { return 0 }
func (w *fakeInjectingWorker) FileSize() int64      { return 0 }
func (w *fakeInjectingWorker) WorkerType() string   { return "fake_injecting" }
func (w *fakeInjectingWorker) OutputPoolID() uint64 { return w.poolID }

var _ worker.Base = (*fakeInjectingWorker)(nil)

func TestProductionLineDrivesInjectingWorker(t *testing.T) {
	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	w := &fakeInjectingWorker{alloc: alloc, frameSize: 16}

	pl := New(w, Options{ThreadCount: 2})
	if err := pl.Start(reg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pool, ok := reg.ResolvePool(pl.WorkingBufferPoolID())
	if !ok {
		t.Fatal("working pool not registered")
	}

	const n = 10
	consumed := 0
	for consumed < n {
		buf, err := pool.AcquireFilled(true, time.Second)
		if err != nil {
			t.Fatalf("AcquireFilled: %v", err)
		}
		if buf == nil {
			continue
		}
		consumed++
		if err := pool.ReleaseFilled(buf); err != nil {
			t.Fatalf("ReleaseFilled: %v", err)
		}
	}

	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pl.ProducedFrames() < n {
		t.Fatalf("ProducedFrames() = %d, want >= %d", pl.ProducedFrames(), n)
	}
	if pl.SkippedFrames() != 0 {
		t.Fatalf("SkippedFrames() = %d, want 0", pl.SkippedFrames())
	}
}

func TestProductionLineStopsInjectingWorkerAtEnd(t *testing.T) {
	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	w := &fakeInjectingWorker{alloc: alloc, frameSize: 16}

	pl := New(w, Options{ThreadCount: 1})
	if err := pl.Start(reg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pool, ok := reg.ResolvePool(pl.WorkingBufferPoolID())
	if !ok {
		t.Fatal("working pool not registered")
	}

	buf, err := pool.AcquireFilled(true, time.Second)
	if err != nil {
		t.Fatalf("AcquireFilled: %v", err)
	}
	if err := pool.ReleaseFilled(buf); err != nil {
		t.Fatalf("ReleaseFilled: %v", err)
	}

	w.exhaust.Store(true)

	// The producer goroutine should observe ErrAtEnd and return on its own;
	// give it a moment, then Stop should still succeed cleanly.
	time.Sleep(50 * time.Millisecond)
	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
