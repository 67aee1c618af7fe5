package buffer

import (
	"sync/atomic"
	"unsafe"
)

// bufferMagic is stamped into every Buffer at construction and checked by
// IsValid as a cheap corruption/use-after-free detector.
const bufferMagic uint32 = 0x42465256 // "BFRV"

// MaxPlanes bounds the number of image planes a Buffer can describe
// (e.g. Y/U/V or Y/UV for NV12).
const MaxPlanes = 4

// Ownership tags who is responsible for freeing a Buffer's memory.
type Ownership uint8

const (
	// Owned means this system allocated the memory and must free it when
	// the buffer is destroyed.
	Owned Ownership = iota
	// External means the memory is borrowed; destruction only detaches
	// the Buffer's metadata and never frees or unmaps the memory itself.
	External
)

func (o Ownership) String() string {
	if o == External {
		return "external"
	}
	return "owned"
}

// State is the lifecycle state of a Buffer. It is maintained atomically on
// Buffer for lock-free inspection, but Pool queue membership is always the
// authoritative record of where a buffer lives.
type State uint32

const (
	StateIdle State = iota
	StateLockedByProducer
	StateReadyForConsume
	StateLockedByConsumer
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLockedByProducer:
		return "locked_by_producer"
	case StateReadyForConsume:
		return "ready_for_consume"
	case StateLockedByConsumer:
		return "locked_by_consumer"
	default:
		return "unknown"
	}
}

// ImageMetadata describes the geometry of the frame held in a Buffer, when
// the producer knows it. PlaneOffset[i] is relative to the buffer's virtual
// address; Linesize[i] is the stride in bytes of plane i.
type ImageMetadata struct {
	Width       uint32
	Height      uint32
	PixelFormat string
	Linesize    [MaxPlanes]uint32
	PlaneOffset [MaxPlanes]uint32
	PlaneCount  uint8
}

// PlaneSource is implemented by a decoder-owned frame object so that a
// Buffer can follow its plane pointers directly instead of assuming planes
// are contiguous relative to the buffer's own virtual address. Hardware
// decoders commonly return NV12 or planar frames whose planes live at
// unrelated addresses, which is why plane_data(i>0) prefers this source
// over plane-offset arithmetic — see Buffer.PlaneData.
type PlaneSource interface {
	// Plane returns the raw bytes of plane i, or nil if i is out of range
	// or the plane is not present.
	Plane(i int) []byte
}

// FrameDescriptor describes a decoded or captured frame's geometry and
// plane data, as handed to Buffer.SetImageMetadataFrom. PlaneData[i] is
// nil for planes the source does not provide.
type FrameDescriptor struct {
	Width       uint32
	Height      uint32
	PixelFormat string
	Linesize    [MaxPlanes]uint32
	PlaneData   [MaxPlanes][]byte
}

// noCopy causes `go vet`'s copylocks check to flag accidental copies of a
// struct that embeds it. Buffer must only ever be handled through *Buffer.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is the metadata and memory record for exactly one frame-sized
// region of memory. A Buffer is never copied; it is always handled by
// reference through *Buffer.
type Buffer struct {
	_ noCopy

	id        uint32
	virt      unsafe.Pointer
	phys      uint64
	size      uint64
	ownership Ownership
	state     atomic.Uint32
	magic     uint32

	meta        *ImageMetadata
	planeSource PlaneSource

	releaseCallback func()
}

// New constructs a Buffer in state Idle with the validation magic
// installed. virt may be nil when the memory is only DMA-accessible; phys
// of 0 means unknown/not applicable.
func New(id uint32, virt unsafe.Pointer, phys uint64, size uint64, ownership Ownership) *Buffer {
	b := &Buffer{
		id:        id,
		virt:      virt,
		phys:      phys,
		size:      size,
		ownership: ownership,
		magic:     bufferMagic,
	}
	b.state.Store(uint32(StateIdle))
	return b
}

func (b *Buffer) ID() uint32              { return b.id }
func (b *Buffer) VirtualAddress() unsafe.Pointer { return b.virt }
func (b *Buffer) PhysicalAddress() uint64 { return b.phys }
func (b *Buffer) Size() uint64            { return b.size }
func (b *Buffer) Ownership() Ownership    { return b.ownership }

// Metadata returns the image geometry set by SetImageMetadataFrom, or nil
// if none has been set.
func (b *Buffer) Metadata() *ImageMetadata { return b.meta }

// State returns the buffer's current lifecycle state.
func (b *Buffer) State() State { return State(b.state.Load()) }

// SetState sets the buffer's lifecycle state. It is exported for use by
// code outside this package that implements its own scheduling on top of
// a Buffer obtained via PlaneSource-style wrapping; Pool itself mutates
// state internally during acquire/submit/release.
func (b *Buffer) SetState(s State) { b.state.Store(uint32(s)) }

// setDecoderFrame attaches the decoder-owned frame back-reference used by
// plane_data for planes beyond 0. Allocator-only.
func (b *Buffer) setDecoderFrame(src PlaneSource) { b.planeSource = src }

// setReleaseCallback installs f to fire exactly once, the next time this
// buffer returns to its pool's free queue via ReleaseFilled/ReleaseFree.
// Allocator-only; must be called before the buffer is published into a
// pool's queue so the install happens-before any consumer can release it.
func (b *Buffer) setReleaseCallback(f func()) { b.releaseCallback = f }

// takeReleaseCallback clears and returns the installed release callback, so
// Pool can fire it outside its own lock without risking a second call.
func (b *Buffer) takeReleaseCallback() func() {
	f := b.releaseCallback
	b.releaseCallback = nil
	return f
}

// bytes returns the buffer's own virtual memory as a byte slice, or nil if
// it has none (DMA-only buffers with no CPU mapping).
func (b *Buffer) bytes() []byte {
	if b.virt == nil || b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.virt), b.size)
}

// PlaneData returns the bytes of image plane i. For i == 0 it prefers the
// buffer's own virtual address (which, for decoder-backed buffers, has
// been set to the decoder's plane-0 address at creation); for i > 0 it
// prefers the decoder-frame back-reference, because planes are frequently
// non-contiguous relative to plane 0 in hardware-decoded NV12/planar
// frames. It returns nil when neither source has the plane, or when i is
// out of [0, MaxPlanes).
func (b *Buffer) PlaneData(i int) []byte {
	if i < 0 || i >= MaxPlanes {
		return nil
	}
	if i == 0 {
		if buf := b.bytes(); buf != nil {
			return buf
		}
		if b.planeSource != nil {
			return b.planeSource.Plane(0)
		}
		return nil
	}
	if b.planeSource != nil {
		if p := b.planeSource.Plane(i); p != nil {
			return p
		}
	}
	if b.meta != nil && i < int(b.meta.PlaneCount) {
		all := b.bytes()
		off := uint64(b.meta.PlaneOffset[i])
		if all != nil && off <= uint64(len(all)) {
			return all[off:]
		}
	}
	return nil
}

// SetImageMetadataFrom copies geometry from a decoded/captured frame
// descriptor: width, height, pixel format tag and linesizes are copied
// directly; plane offsets are computed as data[i] - data[0], clamped to
// non-negative; plane count is the highest-indexed non-nil plane plus one.
func (b *Buffer) SetImageMetadataFrom(fd FrameDescriptor) {
	meta := &ImageMetadata{
		Width:       fd.Width,
		Height:      fd.Height,
		PixelFormat: fd.PixelFormat,
		Linesize:    fd.Linesize,
	}

	var base uintptr
	if fd.PlaneData[0] != nil {
		base = uintptr(unsafe.Pointer(unsafe.SliceData(fd.PlaneData[0])))
	}

	var count uint8
	for i := 0; i < MaxPlanes; i++ {
		plane := fd.PlaneData[i]
		if plane == nil {
			continue
		}
		count = uint8(i + 1)
		if i == 0 || base == 0 {
			continue
		}
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(plane)))
		var off int64
		if addr >= base {
			off = int64(addr - base)
		}
		if off < 0 {
			off = 0
		}
		meta.PlaneOffset[i] = uint32(off)
	}
	meta.PlaneCount = count

	b.meta = meta
}

// IsValid reports whether the buffer's validation magic is intact and it
// has a usable virtual address.
func (b *Buffer) IsValid() bool {
	return b.magic == bufferMagic && b.virt != nil
}
