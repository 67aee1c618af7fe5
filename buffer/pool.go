package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Queue identifies one of a Pool's two FIFOs.
type Queue uint8

const (
	QueueFree Queue = iota
	QueueFilled
)

// fifo is an unbounded FIFO of *Buffer. Callers hold the owning Pool's
// mutex for every operation.
type fifo struct {
	items []*Buffer
}

func (f *fifo) push(b *Buffer) {
	f.items = append(f.items, b)
}

func (f *fifo) pop() *Buffer {
	if len(f.items) == 0 {
		return nil
	}
	b := f.items[0]
	f.items[0] = nil
	f.items = f.items[1:]
	return b
}

func (f *fifo) remove(b *Buffer) bool {
	for i, v := range f.items {
		if v == b {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fifo) len() int { return len(f.items) }

// Pool is a named, categorized double-queue scheduler over a fixed set of
// Buffers. Producers acquire from the free queue and submit to the filled
// queue; consumers acquire from the filled queue and release to the free
// queue. Pool does not own its Buffers — the Allocator that created them
// does — and Pool itself is owned by a Registry, never directly by a
// Pool's creator.
//
// Every public method is a short critical section under a single mutex
// plus at most one condition-variable signal; the only blocking points are
// AcquireFree and AcquireFilled, both of which are woken unconditionally
// by Shutdown.
type Pool struct {
	name     string
	category string
	id       uint64

	mu         sync.Mutex
	freeCond   *sync.Cond
	filledCond *sync.Cond
	running    atomic.Bool

	managed map[uint32]*Buffer
	free    fifo
	filled  fifo
	nextID  uint32

	// inFlight counts buffers currently checked out by a producer or
	// consumer (i.e. in neither queue). It backs the quiescence wait used
	// by Allocator.DestroyPool; see DESIGN.md, Open Question decision 4.
	inFlight atomic.Int32
}

// NewPool constructs an empty, running Pool with the given name and
// category. name is expected to be unique within a Registry; the Registry
// only warns on collision, it does not refuse registration.
func NewPool(name, category string) *Pool {
	p := &Pool{
		name:     name,
		category: category,
		managed:  make(map[uint32]*Buffer),
	}
	p.freeCond = sync.NewCond(&p.mu)
	p.filledCond = sync.NewCond(&p.mu)
	p.running.Store(true)
	return p
}

func (p *Pool) Name() string     { return p.name }
func (p *Pool) Category() string { return p.category }
func (p *Pool) ID() uint64       { return p.id }

// SetRegistryID is called once by a Registry at registration time to
// record the id it assigned this pool.
func (p *Pool) SetRegistryID(id uint64) { p.id = id }

// ManagedCount returns the number of buffers currently tracked by the
// pool, across both queues and any in-flight checkouts.
func (p *Pool) ManagedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.managed)
}

// FreeCount and FilledCount report current queue depths, mostly useful for
// tests and monitoring.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free.len()
}

func (p *Pool) FilledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled.len()
}

// InFlightCount returns the number of buffers currently checked out by a
// producer or consumer (neither queue).
func (p *Pool) InFlightCount() int32 { return p.inFlight.Load() }

// IsRunning reports whether Shutdown has not yet been called.
func (p *Pool) IsRunning() bool { return p.running.Load() }

// GetBufferByID returns the managed buffer with the given id, or nil if no
// such buffer exists in this pool.
func (p *Pool) GetBufferByID(id uint32) *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.managed[id]
}

// acquire is the shared implementation behind AcquireFree/AcquireFilled. A
// negative timeout waits forever; a zero timeout makes a single
// non-blocking attempt even when blocking is requested, satisfying the
// "returns null within a small epsilon" boundary behavior.
func (p *Pool) acquire(q *fifo, cond *sync.Cond, blocking bool, timeout time.Duration, onAcquire func(*Buffer)) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		p.freeCond.Broadcast()
		p.filledCond.Broadcast()
		return nil, ErrShuttingDown
	}
	if b := q.pop(); b != nil {
		onAcquire(b)
		return b, nil
	}
	if !blocking || timeout == 0 {
		return nil, nil
	}

	hasDeadline := timeout > 0
	var deadline time.Time
	if hasDeadline {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, cond.Broadcast)
		defer timer.Stop()
	}

	for {
		cond.Wait()
		if !p.running.Load() {
			return nil, ErrShuttingDown
		}
		if b := q.pop(); b != nil {
			onAcquire(b)
			return b, nil
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return nil, nil
		}
	}
}

// AcquireFree pops a buffer from the free queue, transitioning it to
// LockedByProducer. If the queue is empty: with blocking=false it returns
// (nil, nil) immediately; with blocking=true it waits on the free
// condition variable, bounded by timeout (timeout<0 waits forever,
// timeout==0 makes a single immediate attempt). Returns ErrShuttingDown
// once Shutdown has been called.
func (p *Pool) AcquireFree(blocking bool, timeout time.Duration) (*Buffer, error) {
	return p.acquire(&p.free, p.freeCond, blocking, timeout, func(b *Buffer) {
		b.SetState(StateLockedByProducer)
		p.inFlight.Add(1)
	})
}

// AcquireFilled is symmetric to AcquireFree over the filled queue; on
// success the buffer transitions to LockedByConsumer.
func (p *Pool) AcquireFilled(blocking bool, timeout time.Duration) (*Buffer, error) {
	return p.acquire(&p.filled, p.filledCond, blocking, timeout, func(b *Buffer) {
		b.SetState(StateLockedByConsumer)
		p.inFlight.Add(1)
	})
}

// SubmitFilled validates that buf belongs to this pool and is currently
// LockedByProducer, transitions it to ReadyForConsume, pushes it onto the
// filled queue, and wakes one filled-queue waiter. Submitting a buffer a
// second time (or one not currently locked by a producer) returns
// ErrInvalidTransition and leaves the pool state unchanged.
func (p *Pool) SubmitFilled(buf *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.managed[buf.id]; !ok {
		return ErrNotManaged
	}
	if buf.State() != StateLockedByProducer {
		return ErrInvalidTransition
	}
	buf.SetState(StateReadyForConsume)
	p.filled.push(buf)
	p.inFlight.Add(-1)
	p.filledCond.Signal()
	return nil
}

// ReleaseFree is the producer-side abort path: it validates membership,
// returns buf to the free queue in state Idle, and wakes one free-queue
// waiter. If a release callback was installed on buf (see
// Allocator.InjectDecoderFrame), it fires after the pool lock is released.
func (p *Pool) ReleaseFree(buf *Buffer) error {
	p.mu.Lock()
	if _, ok := p.managed[buf.id]; !ok {
		p.mu.Unlock()
		return ErrNotManaged
	}
	buf.SetState(StateIdle)
	p.free.push(buf)
	p.inFlight.Add(-1)
	cb := buf.takeReleaseCallback()
	p.freeCond.Signal()
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// ReleaseFilled is the consumer's normal return path: it validates
// membership, returns buf to the free queue in state Idle, and wakes one
// free-queue waiter. If a release callback was installed on buf (see
// Allocator.InjectDecoderFrame), it fires after the pool lock is released —
// this is how an injection-mode Worker learns a published buffer has
// actually been drained by a consumer, e.g. to release a depth semaphore.
func (p *Pool) ReleaseFilled(buf *Buffer) error {
	p.mu.Lock()
	if _, ok := p.managed[buf.id]; !ok {
		p.mu.Unlock()
		return ErrNotManaged
	}
	buf.SetState(StateIdle)
	p.free.push(buf)
	p.inFlight.Add(-1)
	cb := buf.takeReleaseCallback()
	p.freeCond.Signal()
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Shutdown clears the running flag and wakes every waiter on both
// condition variables. Idempotent: calling it again is a no-op beyond
// re-broadcasting to condition variables with no waiters left.
func (p *Pool) Shutdown() {
	p.running.Store(false)
	p.mu.Lock()
	p.freeCond.Broadcast()
	p.filledCond.Broadcast()
	p.mu.Unlock()
}

// addBufferToQueue inserts buf into the managed set and the requested
// queue, signaling the corresponding condition variable. It fails if buf
// is already managed. Allocator-only: unexported so that only allocator
// code in this package can call it.
func (p *Pool) addBufferToQueue(buf *Buffer, q Queue) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.managed[buf.id]; ok {
		return ErrAlreadyManaged
	}
	p.managed[buf.id] = buf

	switch q {
	case QueueFilled:
		buf.SetState(StateReadyForConsume)
		p.filled.push(buf)
		p.filledCond.Signal()
	default:
		buf.SetState(StateIdle)
		p.free.push(buf)
		p.freeCond.Signal()
	}
	return nil
}

// removeBufferFromPool removes buf from the managed set and the free
// queue. It succeeds only when buf is managed and currently Idle (i.e.
// sitting in the free queue); it fails otherwise, e.g. when the buffer is
// checked out or ReadyForConsume. Allocator-only.
func (p *Pool) removeBufferFromPool(buf *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.managed[buf.id]; !ok {
		return ErrNotManaged
	}
	if buf.State() != StateIdle {
		return ErrNotIdle
	}
	p.free.remove(buf)
	delete(p.managed, buf.id)
	return nil
}

// clearAllManagedBuffers empties the managed set without touching queue
// contents. The allocator calls it from DestroyPool's teardown and from
// error-unwinding paths, each time after it has already destroyed the
// underlying buffers, so queue contents are necessarily stale pointers at
// that point anyway. Allocator-only.
func (p *Pool) clearAllManagedBuffers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.managed = make(map[uint32]*Buffer)
}

// allocateLocalID hands out the next buffer id unique within this pool,
// used by Allocator so that ids created by AllocatePoolWithBuffers and ids
// created later by injection never collide.
func (p *Pool) allocateLocalID() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	return id
}

// managedSnapshot returns a slice of all currently managed buffers, used
// by Allocator.DestroyPool to drain every buffer regardless of queue.
func (p *Pool) managedSnapshot() []*Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Buffer, 0, len(p.managed))
	for _, b := range p.managed {
		out = append(out, b)
	}
	return out
}
