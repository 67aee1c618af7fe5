package buffer

import (
	"sync"
	"unsafe"
)

// FramebufferDescriptor names one pre-existing, device-mapped region of
// memory a display or capture subsystem has already allocated — typically
// a framebuffer or DMA-BUF plane — that the pipeline wants to manage
// through the ordinary Buffer/Pool machinery without copying or
// re-mapping it.
type FramebufferDescriptor struct {
	Virt unsafe.Pointer
	Phys uint64
	Size uint64
}

// framebufferBackend wraps a fixed list of pre-existing memory regions.
// Unlike normalBackend and avframeBackend it never allocates or frees
// memory of its own: effectiveCount always serves exactly len(descriptors)
// buffers regardless of what was requested, and deallocateBuffer only
// detaches bookkeeping — the region itself is owned by whatever mapped it
// (a display driver, a DMA-BUF exporter) and outlives the Allocator.
type framebufferBackend struct {
	mu          sync.Mutex
	descriptors []FramebufferDescriptor
	used        map[uint32]bool
}

// NewFramebufferAllocator returns an Allocator whose buffers wrap the given
// pre-existing memory regions in declaration order. AllocatePoolWithBuffers
// on this Allocator ignores its requested count and always creates
// exactly len(descriptors) buffers.
func NewFramebufferAllocator(reg PoolRegistry, descriptors []FramebufferDescriptor) *Allocator {
	return newAllocator(reg, &framebufferBackend{
		descriptors: descriptors,
		used:        make(map[uint32]bool),
	})
}

func (f *framebufferBackend) effectiveCount(requested int) int { return len(f.descriptors) }

func (f *framebufferBackend) createBuffer(id uint32, _ uint64) (*Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if int(id) >= len(f.descriptors) {
		return nil, ErrZeroSize
	}
	d := f.descriptors[id]
	f.used[id] = true
	return New(id, d.Virt, d.Phys, d.Size, External), nil
}

func (f *framebufferBackend) deallocateBuffer(buf *Buffer) {
	f.mu.Lock()
	delete(f.used, buf.ID())
	f.mu.Unlock()
}
