package buffer

// AllocatorConfig carries the construction parameters specific to one
// Kind of Allocator; NewAllocator reads only the field(s) relevant to the
// requested kind and ignores the rest.
type AllocatorConfig struct {
	// Alignment is used by KindNormal; 0 falls back to defaultAlignment.
	Alignment uint64

	// FramebufferDescriptors is used by KindFramebuffer.
	FramebufferDescriptors []FramebufferDescriptor
}

// NewAllocator is the factory entry point for all three Allocator kinds,
// mirroring spec.md's abstract-base-plus-factory hierarchy (§4.4.1–4.4.4)
// with a Kind discriminator in place of a virtual-dispatch base class —
// Allocator itself is the Facade every caller programs against regardless
// of which backend cfg selects.
func NewAllocator(kind Kind, reg PoolRegistry, cfg AllocatorConfig) *Allocator {
	switch kind {
	case KindAVFrame:
		return NewAVFrameAllocator(reg)
	case KindFramebuffer:
		return NewFramebufferAllocator(reg, cfg.FramebufferDescriptors)
	default:
		return NewNormalAllocator(reg, cfg.Alignment)
	}
}
