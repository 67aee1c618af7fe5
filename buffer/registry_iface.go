package buffer

// PoolRegistry is the contract an Allocator needs from a pool directory.
// The concrete implementation lives in package registry; it is expressed
// here as an interface so this package never imports registry (registry
// imports buffer, not the other way around).
//
// Unlike the source's strong/weak shared_ptr split, a Go implementation
// does not need manual reference counting to stay memory-safe — the
// garbage collector keeps a *Pool alive for as long as anything holds it.
// What the source's discipline actually protects is a liveness
// *invariant*, not memory: "reachable from the registry iff alive". That
// invariant is preserved here by making the registry's id→pool map the
// single source of truth: once UnregisterPool removes an entry, every
// later Observer.Upgrade call observes it gone, even though the Go
// runtime may keep the underlying Pool's memory alive a little longer
// than a reference-counted build would. See DESIGN.md for the full
// writeup.
type PoolRegistry interface {
	// RegisterPool assigns a new id, records the pool under name/category,
	// and returns the id. It rejects a nil pool or a zero allocatorID.
	RegisterPool(p *Pool, category string, allocatorID uint64) (uint64, error)

	// GetPool returns an Observer for id, valid whether or not id is
	// currently registered; Upgrade resolves it.
	GetPool(id uint64) Observer

	// ResolvePool returns the live pool for id, or (nil, false) if id is
	// unknown or has been unregistered. Called by Observer.Upgrade.
	ResolvePool(id uint64) (*Pool, bool)

	// GetPoolsByAllocatorID lists the ids of every pool created by the
	// given allocator, for use by Allocator.DestroyPool.
	GetPoolsByAllocatorID(allocatorID uint64) []uint64

	// UnregisterPool removes id from the registry. It is a no-op if id is
	// not currently registered.
	UnregisterPool(id uint64)
}

// Observer is a non-owning handle to a pool. Callers must call Upgrade
// before using the pool; Upgrade returns false once the pool has been
// unregistered.
type Observer struct {
	id  uint64
	reg PoolRegistry
}

// NewObserver constructs an Observer bound to the given registry and pool
// id. PoolRegistry implementations use this to hand callers a lookup
// handle rather than a raw pointer that could outlive the pool's
// registration.
func NewObserver(reg PoolRegistry, id uint64) Observer {
	return Observer{id: id, reg: reg}
}

// ID returns the pool id this observer refers to.
func (o Observer) ID() uint64 { return o.id }

// Upgrade resolves the observer to the live *Pool, or returns (nil, false)
// if the pool has been unregistered or this Observer is the zero value.
func (o Observer) Upgrade() (*Pool, bool) {
	if o.reg == nil {
		return nil, false
	}
	return o.reg.ResolvePool(o.id)
}
