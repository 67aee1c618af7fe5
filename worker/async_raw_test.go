package worker

import (
	"testing"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
	"github.com/vladimirvivien/zerocopyvideo/registry"
)

func TestAsyncRawWorkerOpenAndFillBuffer(t *testing.T) {
	const width, height, bpp = 8, 8, 1 // frameSize = 64
	const frameSize = width * height * bpp
	path := writeRawFrames(t, 5, frameSize)

	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	cfg := config.New(
		config.WithFilePath(path),
		config.WithOutputGeometry(width, height, bpp*8),
		config.WithBufferCount(2),
	)

	w := NewAsyncRawWorker(cfg, alloc)
	if err := w.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	pool, ok := reg.ResolvePool(w.OutputPoolID())
	if !ok {
		t.Fatal("working pool not registered")
	}

	buf, err := pool.AcquireFree(false, 0)
	if err != nil || buf == nil {
		t.Fatalf("AcquireFree: buf=%v err=%v", buf, err)
	}
	if err := w.FillBuffer(3, buf); err != nil {
		t.Fatalf("FillBuffer: %v", err)
	}
	plane := buf.PlaneData(0)
	for _, v := range plane {
		if v != 3 {
			t.Fatalf("plane byte = %d, want 3", v)
		}
	}
}

func TestAsyncRawWorkerConcurrentFillRespectsDepth(t *testing.T) {
	const width, height, bpp = 4, 4, 1
	const frameSize = width * height * bpp
	path := writeRawFrames(t, 20, frameSize)

	reg := registry.New()
	alloc := buffer.NewNormalAllocator(reg, 0)
	cfg := config.New(
		config.WithFilePath(path),
		config.WithOutputGeometry(width, height, bpp*8),
		config.WithBufferCount(defaultAsyncDepth*2),
	)
	w := NewAsyncRawWorker(cfg, alloc)
	if err := w.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	pool, _ := reg.ResolvePool(w.OutputPoolID())

	done := make(chan error, defaultAsyncDepth*2)
	for i := 0; i < defaultAsyncDepth*2; i++ {
		i := i
		go func() {
			buf, err := pool.AcquireFree(true, -1)
			if err != nil {
				done <- err
				return
			}
			done <- w.FillBuffer(i, buf)
		}()
	}
	for i := 0; i < defaultAsyncDepth*2; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent FillBuffer: %v", err)
		}
	}
}
