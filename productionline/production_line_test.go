package productionline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
	"github.com/vladimirvivien/zerocopyvideo/registry"
	"github.com/vladimirvivien/zerocopyvideo/worker"
)

func writeRawFrames(t *testing.T, n, frameSize int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.raw")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	for i := 0; i < n; i++ {
		frame := make([]byte, frameSize)
		for j := range frame {
			frame[j] = byte(i)
		}
		if _, err := f.Write(frame); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}
	return path
}

func TestProductionLineDrainsAllFrames(t *testing.T) {
	const width, height, bpp = 4, 4, 1
	const frameSize = width * height * bpp
	const n = 20
	path := writeRawFrames(t, n, frameSize)

	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	cfg := config.New(
		config.WithFilePath(path),
		config.WithOutputGeometry(width, height, bpp*8),
		config.WithBufferCount(4),
	)
	w := worker.NewMmapRawWorker(cfg, alloc)

	pl := New(w, Options{ThreadCount: 2})
	if err := pl.Start(reg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pool, ok := reg.ResolvePool(pl.WorkingBufferPoolID())
	if !ok {
		t.Fatal("working pool not registered")
	}

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
	if pl.IsRunning() {
		t.Fatal("IsRunning() true after Stop")
	}
	if got := pl.ProducedFrames(); got != n {
		t.Fatalf("ProducedFrames() = %d, want %d", got, n)
	}
	if got := pl.SkippedFrames(); got != 0 {
		t.Fatalf("SkippedFrames() = %d, want 0", got)
	}
}

func TestProductionLineLoopsWhenConfigured(t *testing.T) {
	const width, height, bpp = 2, 2, 1
	const frameSize = width * height * bpp
	const n = 3
	path := writeRawFrames(t, n, frameSize)

	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	cfg := config.New(
		config.WithFilePath(path),
		config.WithOutputGeometry(width, height, bpp*8),
		config.WithBufferCount(2),
	)
	w := worker.NewMmapRawWorker(cfg, alloc)

	pl := New(w, Options{ThreadCount: 1, Loop: true})
	if err := pl.Start(reg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pool, ok := reg.ResolvePool(pl.WorkingBufferPoolID())
	if !ok {
		t.Fatal("working pool not registered")
	}

	// Consume well beyond the source's frame count to exercise the
	// loop-wrap cursor.
	for i := 0; i < n*5; i++ {
		buf, err := pool.AcquireFilled(true, time.Second)
		if err != nil {
			t.Fatalf("AcquireFilled: %v", err)
		}
		if buf == nil {
			i--
			continue
		}
		if err := pool.ReleaseFilled(buf); err != nil {
			t.Fatalf("ReleaseFilled: %v", err)
		}
	}

	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pl.ProducedFrames() < n*5 {
		t.Fatalf("ProducedFrames() = %d, want >= %d", pl.ProducedFrames(), n*5)
	}
}

func TestProductionLineStartFailsWithoutSpawningThreads(t *testing.T) {
	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	cfg := config.New(
		config.WithFilePath(filepath.Join(t.TempDir(), "does-not-exist.raw")),
		config.WithOutputGeometry(4, 4, 8),
		config.WithBufferCount(2),
	)
	w := worker.NewMmapRawWorker(cfg, alloc)

	pl := New(w, Options{ThreadCount: 4})
	if err := pl.Start(reg); err == nil {
		t.Fatal("Start should fail when the worker fails to open")
	}
	if pl.IsRunning() {
		t.Fatal("IsRunning() true after a failed Start")
	}
}
