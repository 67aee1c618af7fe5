// Package registry is the pipeline's pool directory: every buffer.Pool an
// Allocator creates is registered here under a process-wide unique id, and
// every lookup by id (Observer.Upgrade, an Allocator's own teardown scan)
// goes through it. A Registry is the single source of truth for whether a
// pool is still alive; see buffer.PoolRegistry's doc comment for why Go's
// garbage collector makes that the only invariant worth tracking here.
package registry
