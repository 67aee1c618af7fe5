package buffer

import (
	"sync"
	"unsafe"
)

const defaultAlignment = 64

// normalBackend allocates aligned heap memory for each buffer. Ownership
// is always Owned and physical addresses are always 0 (not applicable to
// plain heap memory).
type normalBackend struct {
	alignment uint64
}

// NewNormalAllocator returns an Allocator whose buffers are aligned heap
// allocations. A zero alignment falls back to 64 bytes.
func NewNormalAllocator(reg PoolRegistry, alignment uint64) *Allocator {
	if alignment == 0 {
		alignment = defaultAlignment
	}
	return newAllocator(reg, &normalBackend{alignment: alignment})
}

func (n *normalBackend) createBuffer(id uint32, size uint64) (*Buffer, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	// Over-allocate by alignment-1 bytes and round the usable start up,
	// the standard manual-alignment trick for slices backed by Go's
	// allocator (which does not expose posix_memalign).
	raw := make([]byte, size+n.alignment-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	aligned := (base + uintptr(n.alignment) - 1) &^ (uintptr(n.alignment) - 1)
	off := aligned - base

	virt := unsafe.Pointer(&raw[off])
	buf := New(id, virt, 0, size, Owned)
	normalBacking.store(buf, raw)
	return buf, nil
}

func (n *normalBackend) deallocateBuffer(buf *Buffer) {
	normalBacking.delete(buf)
}

func (n *normalBackend) effectiveCount(requested int) int { return requested }

// normalBacking keeps the underlying over-allocated []byte alive for as
// long as its Buffer exists. Buffer itself only stores an unsafe.Pointer
// into the slice (so PlaneData can hand out zero-copy views without a
// Go-slice header of its own), so something must anchor the backing array
// against the garbage collector until deallocateBuffer runs.
var normalBacking = &backingTable{table: make(map[*Buffer][]byte)}

type backingTable struct {
	mu    sync.Mutex
	table map[*Buffer][]byte
}

func (t *backingTable) store(b *Buffer, raw []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table[b] = raw
}

func (t *backingTable) delete(b *Buffer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.table, b)
}
