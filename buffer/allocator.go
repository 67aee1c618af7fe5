package buffer

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/vladimirvivien/zerocopyvideo/internal/logx"
)

// Kind identifies a concrete allocator backend.
type Kind uint8

const (
	KindNormal Kind = iota
	KindAVFrame
	KindFramebuffer
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindAVFrame:
		return "avframe"
	case KindFramebuffer:
		return "framebuffer"
	default:
		return "unknown"
	}
}

// backend is the pair of virtual extension points a concrete allocator
// must implement; everything else on Allocator is shared, non-polymorphic
// logic. effectiveCount lets a backend override the requested buffer
// count (the Framebuffer backend always serves its fixed descriptor list
// regardless of what AllocatePoolWithBuffers was asked for).
type backend interface {
	createBuffer(id uint32, size uint64) (*Buffer, error)
	deallocateBuffer(buf *Buffer)
	effectiveCount(requested int) int
}

// nextAllocatorID is the process-wide monotonic counter backing
// Allocator.id; the first allocator constructed gets id 1.
var nextAllocatorID atomic.Uint64

// Allocator creates and destroys Buffers and the Pools that hold them. It
// records only the pool-ids it created — it does not hold a strong or
// weak reference to those pools directly — and on DestroyPool it queries
// the Registry by its own id to discover and drain them. This is the "v2"
// hierarchy spec.md's Open Questions names as intended; see DESIGN.md.
type Allocator struct {
	id      uint64
	reg     PoolRegistry
	backend backend

	// quiescenceTimeout bounds how long DestroyPool waits for a pool's
	// in-flight buffers to return before draining it anyway. See
	// DESIGN.md, Open Question decision 4 (quiescence on teardown).
	quiescenceTimeout time.Duration
}

func newAllocator(reg PoolRegistry, be backend) *Allocator {
	return &Allocator{
		id:                nextAllocatorID.Add(1),
		reg:               reg,
		backend:           be,
		quiescenceTimeout: 2 * time.Second,
	}
}

// ID returns this allocator's globally unique id.
func (a *Allocator) ID() uint64 { return a.id }

// SetQuiescenceTimeout overrides the default bound DestroyPool waits for
// in-flight buffers to drain before proceeding anyway.
func (a *Allocator) SetQuiescenceTimeout(d time.Duration) { a.quiescenceTimeout = d }

// AllocatePoolWithBuffers constructs a new named Pool, creates count
// buffers of size bytes through this allocator's backend, seeds them all
// into the pool's free queue, registers the pool, and returns its id. On
// a buffer-creation failure partway through, every buffer already created
// by this call is destroyed, the pool's managed set is cleared, and 0 is
// returned.
func (a *Allocator) AllocatePoolWithBuffers(count int, size uint64, name, category string) (uint64, error) {
	pool := NewPool(name, category)
	count = a.backend.effectiveCount(count)

	created := make([]*Buffer, 0, count)
	for i := 0; i < count; i++ {
		id := pool.allocateLocalID()
		buf, err := a.backend.createBuffer(id, size)
		if err != nil {
			for _, c := range created {
				a.backend.deallocateBuffer(c)
			}
			pool.clearAllManagedBuffers()
			return 0, err
		}
		created = append(created, buf)
	}

	for _, buf := range created {
		if err := pool.addBufferToQueue(buf, QueueFree); err != nil {
			// Unreachable in practice: ids are pool-assigned and unique.
			return 0, err
		}
	}

	id, err := a.reg.RegisterPool(pool, category, a.id)
	if err != nil {
		for _, buf := range created {
			a.backend.deallocateBuffer(buf)
		}
		return 0, err
	}
	return id, nil
}

// InjectBufferToPool creates a fresh buffer through this allocator's
// backend and inserts it into the requested queue of the pool named by
// poolID. It fails with ErrPoolGone if the pool is no longer registered.
func (a *Allocator) InjectBufferToPool(poolID uint64, size uint64, which Queue) (*Buffer, error) {
	pool, ok := a.reg.ResolvePool(poolID)
	if !ok {
		return nil, ErrPoolGone
	}
	id := pool.allocateLocalID()
	buf, err := a.backend.createBuffer(id, size)
	if err != nil {
		return nil, err
	}
	if err := pool.addBufferToQueue(buf, which); err != nil {
		a.backend.deallocateBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// InjectExternalBufferToPool wraps pre-existing memory (e.g. a hardware
// decoder's output frame or device-mapped memory) in a new External
// buffer and inserts it into the requested queue. Used by zero-copy
// decode and device-memory paths.
func (a *Allocator) InjectExternalBufferToPool(poolID uint64, virt unsafe.Pointer, phys uint64, size uint64, which Queue) (*Buffer, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	pool, ok := a.reg.ResolvePool(poolID)
	if !ok {
		return nil, ErrPoolGone
	}
	id := pool.allocateLocalID()
	buf := New(id, virt, phys, size, External)
	if err := pool.addBufferToQueue(buf, which); err != nil {
		return nil, err
	}
	return buf, nil
}

// RemoveBufferFromPool removes buf from the pool named by poolID and
// deallocates it through this allocator's backend. It fails if the pool
// is gone or the buffer is not currently Idle.
func (a *Allocator) RemoveBufferFromPool(poolID uint64, buf *Buffer) (bool, error) {
	pool, ok := a.reg.ResolvePool(poolID)
	if !ok {
		return false, ErrPoolGone
	}
	if err := pool.removeBufferFromPool(buf); err != nil {
		return false, err
	}
	a.backend.deallocateBuffer(buf)
	return true, nil
}

// DestroyPool queries the registry for every pool this allocator created,
// waits (bounded by quiescenceTimeout) for each to become quiescent,
// drains and deallocates every remaining managed buffer, and unregisters
// the pool. It returns true only if every pool it found was fully
// quiescent before being drained; a false return means some buffer was
// still checked out and is now a dangling reference held by whatever
// checked it out — a logged, metrics-visible condition rather than a
// crash (spec.md §9's quiescence Open Question, resolved in DESIGN.md).
func (a *Allocator) DestroyPool() bool {
	ids := a.reg.GetPoolsByAllocatorID(a.id)
	allQuiescent := true

	for _, id := range ids {
		pool, ok := a.reg.ResolvePool(id)
		if !ok {
			continue
		}
		if !a.awaitQuiescence(pool) {
			allQuiescent = false
			logx.Warn("allocator: destroying pool with buffers still checked out",
				"allocator_id", a.id, "pool_id", id, "in_flight", pool.InFlightCount())
		}
		for _, buf := range pool.managedSnapshot() {
			a.backend.deallocateBuffer(buf)
		}
		pool.clearAllManagedBuffers()
		a.reg.UnregisterPool(id)
	}
	return allQuiescent
}

func (a *Allocator) awaitQuiescence(pool *Pool) bool {
	if a.quiescenceTimeout <= 0 {
		return pool.InFlightCount() == 0
	}
	deadline := time.Now().Add(a.quiescenceTimeout)
	for pool.InFlightCount() != 0 {
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}
