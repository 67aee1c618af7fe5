package buffer

import (
	"sync"
	"unsafe"

	"github.com/vladimirvivien/zerocopyvideo/decode"
)

// avframeBackend backs buffers with frames produced by an external
// decoder, keyed by buffer id rather than by the decoder's own frame
// handle. It never creates a buffer from a bare size — see
// InjectDecoderFrame, which is this backend's only real entry point —
// so createBuffer always fails.
type avframeBackend struct {
	mu     sync.Mutex
	frames map[uint32]*decode.Frame
}

// NewAVFrameAllocator returns an Allocator whose buffers wrap frames handed
// to it by a decoder via InjectDecoderFrame, rather than buffers it
// allocates itself.
func NewAVFrameAllocator(reg PoolRegistry) *Allocator {
	return newAllocator(reg, &avframeBackend{frames: make(map[uint32]*decode.Frame)})
}

func (a *avframeBackend) createBuffer(id uint32, size uint64) (*Buffer, error) {
	return nil, ErrZeroSize // AllocatePoolWithBuffers(count>0) and InjectBufferToPool fail here; frames arrive via InjectDecoderFrame
}

func (a *avframeBackend) deallocateBuffer(buf *Buffer) {
	a.mu.Lock()
	frame, ok := a.frames[buf.ID()]
	if ok {
		delete(a.frames, buf.ID())
	}
	a.mu.Unlock()
	if ok {
		frame.Release()
	}
}

func (a *avframeBackend) effectiveCount(requested int) int { return requested }

// InjectDecoderFrame wraps a just-decoded frame in a new External Buffer
// and inserts it into pool's filled queue. Sizing and image metadata come
// from the frame's own geometry rather than a caller-supplied size, and
// planes are routed through SetImageMetadataFrom the same way any other
// FrameDescriptor would be, so planes i>0 resolve through the frame's own
// addressing (see Buffer.PlaneData) instead of the buffer's virtual
// address — hardware decoders return NV12 and planar frames whose planes
// live at unrelated addresses.
//
// The virtual address always comes from frame's own plane-0 pointer; the
// physical address is always 0, since nothing in decode/* resolves a
// decoder frame to a physical or DRM address (not applicable without a
// real hardware-surface path; see DESIGN.md).
//
// onRelease, if non-nil, is installed on the returned Buffer before it is
// published and fires exactly once a consumer actually releases it back to
// the free queue (Pool.ReleaseFilled/ReleaseFree) — callers that need to
// bound how many injected frames are outstanding (e.g. RTSPWorker's depth
// semaphore) use this instead of releasing eagerly at inject time.
//
// deallocateBuffer (driven by RemoveBufferFromPool or DestroyPool) looks
// the frame back up by buffer id and releases it through the decoder's
// API; the side-table entry is removed before Release is called so a
// concurrent lookup never observes a frame mid-release.
func (a *Allocator) InjectDecoderFrame(poolID uint64, frame *decode.Frame, onRelease func()) (*Buffer, error) {
	be, ok := a.backend.(*avframeBackend)
	if !ok {
		return nil, ErrInvalidTransition
	}
	pool, ok := a.reg.ResolvePool(poolID)
	if !ok {
		return nil, ErrPoolGone
	}

	plane0 := frame.Plane(0)
	if plane0 == nil {
		return nil, ErrZeroSize
	}

	id := pool.allocateLocalID()
	virt := unsafe.Pointer(unsafe.SliceData(plane0))
	buf := New(id, virt, 0, uint64(len(plane0)), External)

	var fd FrameDescriptor
	fd.Width = uint32(frame.Width())
	fd.Height = uint32(frame.Height())
	fd.PixelFormat = frame.PixelFormat()
	for i := 0; i < MaxPlanes; i++ {
		fd.Linesize[i] = uint32(frame.Linesize(i))
		fd.PlaneData[i] = frame.Plane(i)
	}
	buf.SetImageMetadataFrom(fd)
	buf.setDecoderFrame(frame)
	if onRelease != nil {
		buf.setReleaseCallback(onRelease)
	}

	be.mu.Lock()
	be.frames[id] = frame
	be.mu.Unlock()

	if err := pool.addBufferToQueue(buf, QueueFilled); err != nil {
		be.mu.Lock()
		delete(be.frames, id)
		be.mu.Unlock()
		return nil, err
	}
	return buf, nil
}

// DecoderFrameAt returns the decoder frame currently backing buffer id, if
// this allocator is an AVFrame allocator and id is tracked. Exposed for
// workers that need to read decode-specific metadata (e.g. PTS) off a
// filled buffer without threading an extra return value through the pool.
func (a *Allocator) DecoderFrameAt(id uint32) (*decode.Frame, bool) {
	be, ok := a.backend.(*avframeBackend)
	if !ok {
		return nil, false
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	f, ok := be.frames[id]
	return f, ok
}
