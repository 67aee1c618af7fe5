// Package buffer implements the zero-copy frame-buffer core of the video
// production pipeline: the Buffer record, the double-queue BufferPool
// scheduler, and the Allocator hierarchy that creates and destroys buffers
// and the pools that hold them.
//
// # Overview
//
// A Buffer is a handle to exactly one frame-sized region of memory, which
// may be heap-allocated, memory-mapped device memory, or owned by an
// external decoder. A Pool schedules a fixed set of Buffers between a free
// queue and a filled queue; producers acquire from the free queue and
// submit to the filled queue, consumers acquire from the filled queue and
// release back to the free queue. An Allocator is the only party that may
// create or destroy Buffers and the only party that may add or remove a
// Buffer from a Pool's managed set — those operations are unexported so
// that only allocator code in this package can reach them, the Go
// equivalent of the source's friend/passkey idiom (see DESIGN.md).
//
// # Thread Safety
//
// Pool is safe for concurrent use by any number of producers and
// consumers. Buffer's State is updated atomically but is advisory; queue
// membership inside Pool is the authoritative record of where a buffer
// currently lives.
package buffer
