package display

import (
	"errors"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
)

// ErrDMANotSupported is returned by a Surface's DisplayBufferByDMA when
// the surface has no DMA-BUF export path wired up. Cross-host transport
// of buffers is out of scope (spec.md Non-goals): this package documents
// the contract a real DMA-capable surface would satisfy without
// implementing the export itself.
var ErrDMANotSupported = errors.New("display: DMA-BUF export is not implemented")

// Surface is the only contract a pipeline or ProductionLine consumer
// depends on. A concrete implementation owns whatever presentation API
// the platform actually exposes (DRM/KMS, a frame-buffer device, a GUI
// toolkit surface); this package fixes only the shape a Buffer-consuming
// caller needs.
type Surface interface {
	// DisplayBuffer presents b using its CPU-visible memory (VirtualAddress).
	// b must be in state StateLockedByConsumer, i.e. freshly returned by
	// Pool.AcquireFilled; the caller retains ownership and must still
	// release b afterward.
	DisplayBuffer(b *buffer.Buffer) error

	// DisplayBufferByDMA presents b by its physical address, for surfaces
	// that support zero-copy scanout directly from device or decoder
	// memory. Implementations that cannot support this return
	// ErrDMANotSupported rather than silently falling back to a copy.
	DisplayBufferByDMA(b *buffer.Buffer) error
}

// NullSurface is a Surface that discards every buffer it is given. It
// satisfies the contract for pipelines exercised without a real display
// attached (tests, headless encode-only lines) and reports
// ErrDMANotSupported for the DMA path, matching a surface with no
// DMA-BUF capability.
type NullSurface struct{}

func (NullSurface) DisplayBuffer(b *buffer.Buffer) error {
	if !b.IsValid() {
		return errors.New("display: buffer failed validity check")
	}
	return nil
}

func (NullSurface) DisplayBufferByDMA(b *buffer.Buffer) error {
	return ErrDMANotSupported
}

var _ Surface = NullSurface{}
