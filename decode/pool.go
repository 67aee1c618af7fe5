package decode

import "github.com/obinnaokechukwu/ffgo"

// FramePool reuses decoded-frame allocations across a production line's
// lifetime, avoiding FFmpeg allocation churn for workers that hold onto
// decoded frames (e.g. the AVFrame allocator backend, which needs an owned
// frame per in-flight Buffer rather than a borrowed decoder-owned one).
type FramePool struct {
	p *ffgo.FramePool
}

// NewFramePool returns a pool that caps concurrently-checked-out frames at
// maxInUse. maxInUse <= 0 means unbounded.
func NewFramePool(maxInUse int) *FramePool {
	return &FramePool{p: ffgo.NewFramePool(maxInUse)}
}

// Get returns an owned frame from the pool.
func (fp *FramePool) Get() (*Frame, error) {
	raw, err := fp.p.Get()
	if err != nil {
		return nil, err
	}
	return wrapFrame(ffgo.WrapFrame(raw, ffgo.MediaTypeVideo)), nil
}

// Put returns f to the pool. After Put, f must not be used.
func (fp *FramePool) Put(f *Frame) error {
	if f == nil || f.w == nil {
		return nil
	}
	raw := f.w.Raw()
	return fp.p.Put(&raw)
}

// Clone returns an owned frame from the pool that references src's image
// buffers via av_frame_ref (a refcount bump, not a pixel copy), leaving src
// itself untouched. ffgo.Decoder.ReadFrame reuses the same borrowed AVFrame
// on every call, so any frame that must survive past the next ReadFrame —
// e.g. one sitting in RTSPWorker's reorder ring, or one about to be
// published into a Buffer a consumer will read later — must be cloned
// through a FramePool first. Release the returned Frame (not src) when
// done; that returns it to this pool instead of freeing it.
func (fp *FramePool) Clone(src *Frame) (*Frame, error) {
	dst, err := fp.Get()
	if err != nil {
		return nil, err
	}
	if err := ffgo.FrameRef(dst.w.Raw(), src.w.Raw()); err != nil {
		fp.Put(dst)
		return nil, err
	}
	dst.pool = fp
	return dst, nil
}

// Close releases every idle frame held by the pool. Frames still checked
// out are unaffected.
func (fp *FramePool) Close() error { return fp.p.Close() }
