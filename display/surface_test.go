package display

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
)

func newTestBuffer() *buffer.Buffer {
	backing := make([]byte, 16)
	return buffer.New(1, unsafe.Pointer(&backing[0]), 0, 16, buffer.Owned)
}

func TestNullSurfaceDisplayBuffer(t *testing.T) {
	b := newTestBuffer()
	var s NullSurface
	if err := s.DisplayBuffer(b); err != nil {
		t.Fatalf("DisplayBuffer: %v", err)
	}
}

func TestNullSurfaceDisplayBufferByDMA(t *testing.T) {
	b := newTestBuffer()
	var s NullSurface
	err := s.DisplayBufferByDMA(b)
	if !errors.Is(err, ErrDMANotSupported) {
		t.Fatalf("DisplayBufferByDMA error = %v, want ErrDMANotSupported", err)
	}
}
