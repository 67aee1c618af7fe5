package buffer

import (
	"testing"
	"unsafe"
)

func TestNewBufferIsIdleAndValid(t *testing.T) {
	data := make([]byte, 64)
	buf := New(1, unsafe.Pointer(&data[0]), 0, uint64(len(data)), Owned)

	if !buf.IsValid() {
		t.Fatal("new buffer should be valid")
	}
	if buf.State() != StateIdle {
		t.Errorf("new buffer state = %v, want StateIdle", buf.State())
	}
	if buf.Ownership() != Owned {
		t.Errorf("ownership = %v, want Owned", buf.Ownership())
	}
}

func TestPlaneDataZeroCopyOwned(t *testing.T) {
	data := []byte("hello-world-frame-data")
	buf := New(1, unsafe.Pointer(&data[0]), 0, uint64(len(data)), Owned)

	plane := buf.PlaneData(0)
	if len(plane) != len(data) {
		t.Fatalf("PlaneData(0) length = %d, want %d", len(plane), len(data))
	}
	// Mutating through the returned slice must mutate the backing array:
	// this is a zero-copy view, not a copy.
	plane[0] = 'H'
	if data[0] != 'H' {
		t.Error("PlaneData(0) did not alias the buffer's backing memory")
	}
}

type fakeFrame struct {
	planes [][]byte
}

func (f fakeFrame) Plane(i int) []byte {
	if i < 0 || i >= len(f.planes) {
		return nil
	}
	return f.planes[i]
}

func TestPlaneDataPrefersDecoderFrameForNonZeroPlanes(t *testing.T) {
	y := []byte("Y-plane-data")
	u := []byte("U-plane")
	v := []byte("V-plane")

	// Buffer's own virtual address points at Y (plane 0), matching how an
	// AVFrame-backed buffer is constructed: virt is set to plane-0's
	// address, and planes beyond 0 resolve through the decoder frame
	// because they are not contiguous with plane 0.
	buf := New(1, unsafe.Pointer(&y[0]), 0, uint64(len(y)), External)
	buf.setDecoderFrame(fakeFrame{planes: [][]byte{y, u, v}})

	if got := buf.PlaneData(0); string(got) != string(y) {
		t.Errorf("PlaneData(0) = %q, want %q", got, y)
	}
	if got := buf.PlaneData(1); string(got) != string(u) {
		t.Errorf("PlaneData(1) = %q, want %q", got, u)
	}
	if got := buf.PlaneData(2); string(got) != string(v) {
		t.Errorf("PlaneData(2) = %q, want %q", got, v)
	}
	if got := buf.PlaneData(3); got != nil {
		t.Errorf("PlaneData(3) = %v, want nil (no plane source entry)", got)
	}
}

func TestPlaneDataOutOfRange(t *testing.T) {
	data := make([]byte, 8)
	buf := New(1, unsafe.Pointer(&data[0]), 0, uint64(len(data)), Owned)
	if got := buf.PlaneData(-1); got != nil {
		t.Errorf("PlaneData(-1) = %v, want nil", got)
	}
	if got := buf.PlaneData(MaxPlanes); got != nil {
		t.Errorf("PlaneData(MaxPlanes) = %v, want nil", got)
	}
}

func TestSetImageMetadataFromComputesOffsets(t *testing.T) {
	backing := make([]byte, 3*1024)
	y := backing[0:1024]
	u := backing[1024:1536]
	v := backing[1536:2048]

	buf := New(1, unsafe.Pointer(&backing[0]), 0, uint64(len(backing)), Owned)
	buf.SetImageMetadataFrom(FrameDescriptor{
		Width:       32,
		Height:      32,
		PixelFormat: "yuv420p",
		Linesize:    [MaxPlanes]uint32{32, 16, 16},
		PlaneData:   [MaxPlanes][]byte{y, u, v},
	})

	meta := buf.Metadata()
	if meta == nil {
		t.Fatal("Metadata() is nil after SetImageMetadataFrom")
	}
	if meta.PlaneCount != 3 {
		t.Errorf("PlaneCount = %d, want 3", meta.PlaneCount)
	}
	if meta.PlaneOffset[0] != 0 {
		t.Errorf("PlaneOffset[0] = %d, want 0", meta.PlaneOffset[0])
	}
	if meta.PlaneOffset[1] != 1024 {
		t.Errorf("PlaneOffset[1] = %d, want 1024", meta.PlaneOffset[1])
	}
	if meta.PlaneOffset[2] != 1536 {
		t.Errorf("PlaneOffset[2] = %d, want 1536", meta.PlaneOffset[2])
	}
}

func TestStateStringCoversAllValues(t *testing.T) {
	states := []State{StateIdle, StateLockedByProducer, StateReadyForConsume, StateLockedByConsumer}
	for _, s := range states {
		if s.String() == "unknown" {
			t.Errorf("State(%d).String() = unknown, want a named state", s)
		}
	}
	if State(99).String() != "unknown" {
		t.Error("unrecognized State should stringify to unknown")
	}
}
