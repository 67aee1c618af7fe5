package worker

import (
	"errors"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
)

var (
	// ErrNotOpen is returned by operations that require Open to have
	// succeeded first.
	ErrNotOpen = errors.New("worker: not open")
	// ErrAtEnd is returned by Seek/Skip, or by FillBuffer, when the
	// requested position is beyond the end of the source.
	ErrAtEnd = errors.New("worker: at end of source")
	// ErrNoFrameYet is returned by FillBuffer on an injecting Worker when
	// its poll interval elapsed without a new frame to publish. It is not
	// a failure: the caller should simply try again.
	ErrNoFrameYet = errors.New("worker: no frame published yet")
)

// Base is the common contract every concrete Worker satisfies. File-backed
// Workers are pulled by a producer calling FillBuffer with a pre-acquired
// free buffer; streaming or zero-copy Workers report Injects() == true and
// publish frames on their own into a pool they allocate themselves — a
// ProductionLine still calls FillBuffer once per produced frame on these,
// passing a nil buf, purely to drive the Worker's internal publish step
// and learn when the source is exhausted.
type Base interface {
	// Open prepares the worker's input and creates (or discovers) its
	// working pool. After Open succeeds, OutputPoolID is non-zero.
	Open() error

	// Close quiescently shuts the worker down. It does not destroy the
	// working pool — the Allocator that created it does that, as part of
	// its own teardown.
	Close() error

	// Injects reports whether this Worker publishes frames by injection
	// (true) rather than by having FillBuffer copy into a caller-supplied
	// buffer (false).
	Injects() bool

	// FillBuffer advances the Worker by one frame. On a non-injecting
	// Worker it decodes or copies frame frameIndex into buf, which must be
	// in state StateLockedByProducer with Size() >= FrameSize(). On an
	// injecting Worker (Injects() == true) buf is ignored; the call instead
	// waits for (or performs) the Worker's own publish of the next frame
	// into its working pool. Returns ErrAtEnd once the source is exhausted.
	FillBuffer(frameIndex int, buf *buffer.Buffer) error

	Seek(index int) error
	SeekToBegin() error
	SeekToEnd() error
	Skip(delta int) error
	CurrentFrameIndex() int
	TotalFrames() int
	HasMoreFrames() bool
	IsAtEnd() bool

	Width() int
	Height() int
	BytesPerPixel() int
	FrameSize() int64
	FileSize() int64

	WorkerType() string
	OutputPoolID() uint64
}
