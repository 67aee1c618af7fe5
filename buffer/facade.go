package buffer

import "unsafe"

// AllocatorFacade is the narrow, kind-agnostic surface a Worker or
// ProductionLine programs against: it never needs to know which concrete
// backend NewAllocator constructed. *Allocator implements it directly; the
// interface exists so callers can be handed one without importing the
// backend-specific constructors.
type AllocatorFacade interface {
	ID() uint64
	AllocatePoolWithBuffers(count int, size uint64, name, category string) (uint64, error)
	InjectBufferToPool(poolID uint64, size uint64, which Queue) (*Buffer, error)
	InjectExternalBufferToPool(poolID uint64, virt unsafe.Pointer, phys uint64, size uint64, which Queue) (*Buffer, error)
	RemoveBufferFromPool(poolID uint64, buf *Buffer) (bool, error)
	DestroyPool() bool
}

var _ AllocatorFacade = (*Allocator)(nil)
