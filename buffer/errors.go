package buffer

import "errors"

// Sentinel errors returned by Pool and Allocator operations. Callers should
// use errors.Is to check for a specific condition.
var (
	// ErrShuttingDown is returned by a blocking acquire when the pool's
	// running flag has been cleared by Shutdown.
	ErrShuttingDown = errors.New("buffer: pool is shutting down")

	// ErrNotManaged is returned when a buffer is submitted, released, or
	// removed through a pool that does not track it in its managed set.
	ErrNotManaged = errors.New("buffer: not a member of this pool")

	// ErrInvalidTransition is returned when a caller attempts a state
	// transition that is not reachable from the buffer's current state,
	// e.g. submitting a buffer that was already submitted.
	ErrInvalidTransition = errors.New("buffer: invalid state transition")

	// ErrAlreadyManaged is returned by the allocator-only addBufferToQueue
	// when the buffer is already a member of the pool's managed set.
	ErrAlreadyManaged = errors.New("buffer: already a member of this pool")

	// ErrNotIdle is returned by the allocator-only removeBufferFromPool
	// when the buffer is not currently sitting in the free queue.
	ErrNotIdle = errors.New("buffer: buffer is not idle")

	// ErrPoolGone is returned by allocator operations when the registry
	// observer for a pool can no longer be upgraded.
	ErrPoolGone = errors.New("buffer: pool is no longer registered")

	// ErrZeroSize is returned when a buffer creation or injection call is
	// given a size of zero.
	ErrZeroSize = errors.New("buffer: size must be greater than zero")
)
