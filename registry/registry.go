package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/internal/logx"
)

type entry struct {
	pool        *buffer.Pool
	category    string
	allocatorID uint64
	createdAt   time.Time
}

// Registry is a process-wide directory of buffer.Pool instances, keyed by
// a monotonically assigned id. It implements buffer.PoolRegistry.
type Registry struct {
	mu        sync.Mutex
	nextID    uint64
	byID      map[uint64]*entry
	byName    map[string]uint64
	byAllocID map[uint64][]uint64
}

// New returns an empty Registry. Most callers want Default; New exists for
// test isolation and for running multiple independent pipelines in one
// process.
func New() *Registry {
	return &Registry{
		byID:      make(map[uint64]*entry),
		byName:    make(map[string]uint64),
		byAllocID: make(map[uint64][]uint64),
	}
}

var defaultRegistry = New()

// Default returns the process-wide Registry. Allocator constructors take
// their registry as an argument; callers pass Default() to share this one.
func Default() *Registry { return defaultRegistry }

// RegisterPool assigns p a new id, records it under name/category, and
// returns the id. A duplicate name is allowed (pool names are advisory,
// not a uniqueness key) but logged, since it usually indicates a
// configuration mistake upstream.
func (r *Registry) RegisterPool(p *buffer.Pool, category string, allocatorID uint64) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("registry: cannot register a nil pool")
	}
	if allocatorID == 0 {
		return 0, fmt.Errorf("registry: allocatorID must be non-zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	p.SetRegistryID(id)

	r.byID[id] = &entry{
		pool:        p,
		category:    category,
		allocatorID: allocatorID,
		createdAt:   time.Now(),
	}
	if existing, ok := r.byName[p.Name()]; ok {
		logx.Warn("registry: pool name collision", "name", p.Name(), "existing_id", existing, "new_id", id)
	}
	r.byName[p.Name()] = id
	r.byAllocID[allocatorID] = append(r.byAllocID[allocatorID], id)

	return id, nil
}

// GetPool returns a non-owning Observer for id, independent of whether id
// currently resolves to a live pool.
func (r *Registry) GetPool(id uint64) buffer.Observer {
	return buffer.NewObserver(r, id)
}

// ResolvePool returns the live pool for id, or (nil, false) if id was
// never registered or has since been unregistered.
func (r *Registry) ResolvePool(id uint64) (*buffer.Pool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.pool, true
}

// GetPoolsByAllocatorID lists the ids of pools still registered under the
// given allocator id, in registration order.
func (r *Registry) GetPoolsByAllocatorID(allocatorID uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byAllocID[allocatorID]
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// UnregisterPool removes id from the registry. A no-op if id is not
// currently registered.
func (r *Registry) UnregisterPool(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if r.byName[e.pool.Name()] == id {
		delete(r.byName, e.pool.Name())
	}
	ids := r.byAllocID[e.allocatorID]
	for i, v := range ids {
		if v == id {
			r.byAllocID[e.allocatorID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// GetPoolCount returns the number of currently registered pools.
func (r *Registry) GetPoolCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// PoolStats summarizes one registered pool for diagnostics.
type PoolStats struct {
	ID          uint64
	Name        string
	Category    string
	AllocatorID uint64
	Managed     int
	Free        int
	Filled      int
	InFlight    int32
	Age         time.Duration
}

// GlobalStats returns a snapshot of every currently registered pool.
func (r *Registry) GlobalStats() []PoolStats {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.byID))
	entries := make(map[uint64]*entry, len(r.byID))
	for id, e := range r.byID {
		ids = append(ids, id)
		entries[id] = e
	}
	r.mu.Unlock()

	out := make([]PoolStats, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		e := entries[id]
		out = append(out, PoolStats{
			ID:          id,
			Name:        e.pool.Name(),
			Category:    e.category,
			AllocatorID: e.allocatorID,
			Managed:     e.pool.ManagedCount(),
			Free:        e.pool.FreeCount(),
			Filled:      e.pool.FilledCount(),
			InFlight:    e.pool.InFlightCount(),
			Age:         now.Sub(e.createdAt),
		})
	}
	return out
}

// PrintAllStats logs a one-line summary of every registered pool at info
// level, for operators watching a running pipeline.
func (r *Registry) PrintAllStats() {
	for _, s := range r.GlobalStats() {
		logx.Info("pool stats",
			"id", s.ID, "name", s.Name, "category", s.Category,
			"managed", s.Managed, "free", s.Free, "filled", s.Filled,
			"in_flight", s.InFlight, "age", s.Age)
	}
}
