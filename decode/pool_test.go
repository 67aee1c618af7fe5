package decode

import (
	"testing"

	"github.com/obinnaokechukwu/ffgo"
)

func newTestFrame(t *testing.T, width, height int) *Frame {
	t.Helper()
	raw := ffgo.FrameAlloc()
	data := make([]byte, width*height*3/2)
	if err := raw.WrapBuffer(data, width, height, ffgo.PixelFormatYUV420P); err != nil {
		ffgo.FrameFree(&raw)
		t.Fatalf("WrapBuffer: %v", err)
	}
	return wrapFrame(ffgo.WrapFrame(raw, ffgo.MediaTypeVideo))
}

func TestFramePoolCloneReferencesSource(t *testing.T) {
	src := newTestFrame(t, 16, 16)
	defer src.Release()

	fp := NewFramePool(0)
	defer fp.Close()

	clone, err := fp.Clone(src)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if clone.pool != fp {
		t.Errorf("clone.pool = %v, want %v", clone.pool, fp)
	}
	if clone.Width() != src.Width() || clone.Height() != src.Height() {
		t.Errorf("clone dims = %dx%d, want %dx%d", clone.Width(), clone.Height(), src.Width(), src.Height())
	}
	if err := clone.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestFramePoolCloneRespectsMaxInUse(t *testing.T) {
	src := newTestFrame(t, 16, 16)
	defer src.Release()

	fp := NewFramePool(1)
	defer fp.Close()

	clone, err := fp.Clone(src)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if _, err := fp.Clone(src); err == nil {
		t.Error("second Clone with maxInUse=1 succeeded, want an exhaustion error")
	}

	if err := clone.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	clone2, err := fp.Clone(src)
	if err != nil {
		t.Fatalf("Clone after release: %v", err)
	}
	clone2.Release()
}

func TestFrameReleaseRoutesPoolFramesToPut(t *testing.T) {
	src := newTestFrame(t, 8, 8)
	defer src.Release()

	fp := NewFramePool(0)
	defer fp.Close()

	clone, err := fp.Clone(src)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if err := clone.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if clone.pool != nil {
		t.Error("clone.pool should be cleared after Release")
	}
}
