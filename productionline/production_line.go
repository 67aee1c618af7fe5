package productionline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/internal/logx"
	"github.com/vladimirvivien/zerocopyvideo/monitor"
	"github.com/vladimirvivien/zerocopyvideo/worker"
)

const acquireTimeout = 100 * time.Millisecond

// ErrorCallback is invoked whenever a producer's FillBuffer call fails.
// frameIndex identifies the frame that failed; err is the Worker's error.
type ErrorCallback func(frameIndex int, err error)

// Options configures a ProductionLine.
type Options struct {
	// Loop wraps the frame cursor back to 0 once TotalFrames is reached,
	// instead of letting producers exit when the source is exhausted.
	Loop bool
	// ThreadCount is the number of producer goroutines. Must be >= 1.
	ThreadCount int
	// EnableMonitor constructs a PerformanceMonitor tracking "fill" and
	// "produce" latencies.
	EnableMonitor bool
}

// ProductionLine drives thread_count producer goroutines over a Worker and
// its working BufferPool, turning FillBuffer/injection calls into a
// continuous stream of filled buffers for a consumer to drain. The frame
// cursor and counters are atomics and the producer goroutines are joined
// through a WaitGroup; the only mutex-protected state is the last-error
// string and the error callback, which a producer touches only when a
// frame fails to fill.
type ProductionLine struct {
	w    worker.Base
	opts Options

	poolObs buffer.Observer
	poolID  uint64

	totalFrames   int64
	nextFrame     atomic.Int64
	producedCount atomic.Int64
	skippedCount  atomic.Int64
	running       atomic.Bool

	startTime time.Time

	wg sync.WaitGroup

	errMu    sync.Mutex
	lastErr  string
	onError  ErrorCallback

	mon *monitor.PerformanceMonitor
}

// New constructs a ProductionLine for w. opts.ThreadCount is clamped to 1
// if given as less.
func New(w worker.Base, opts Options) *ProductionLine {
	if opts.ThreadCount < 1 {
		opts.ThreadCount = 1
	}
	return &ProductionLine{w: w, opts: opts}
}

// SetErrorCallback installs f to be invoked, in addition to the internal
// last-error bookkeeping, whenever a producer's fill fails.
func (pl *ProductionLine) SetErrorCallback(f ErrorCallback) {
	pl.errMu.Lock()
	pl.onError = f
	pl.errMu.Unlock()
}

// Start opens the worker, discovers its working pool, resets all counters
// and the cursor, and spawns the configured number of producer goroutines.
// On a worker Open failure, Start returns the error without spawning any
// goroutine (spec.md failure mode: fatal-initialization-failure).
func (pl *ProductionLine) Start(reg buffer.PoolRegistry) error {
	if err := pl.w.Open(); err != nil {
		return fmt.Errorf("productionline: open worker: %w", err)
	}

	id := pl.w.OutputPoolID()
	if id == 0 {
		pl.w.Close()
		return fmt.Errorf("productionline: worker reports no output pool id")
	}
	pl.poolID = id
	pl.poolObs = reg.GetPool(id)

	pl.totalFrames = int64(pl.w.TotalFrames())
	pl.nextFrame.Store(0)
	pl.producedCount.Store(0)
	pl.skippedCount.Store(0)
	pl.startTime = time.Now()

	if pl.opts.EnableMonitor {
		pl.mon = monitor.NewPerformanceMonitor()
		pl.mon.RegisterMetric("fill")
		pl.mon.RegisterMetric("produce")
	}

	pl.running.Store(true)
	pl.wg.Add(pl.opts.ThreadCount)
	for i := 0; i < pl.opts.ThreadCount; i++ {
		go pl.produce()
	}
	return nil
}

// produce is the body of a single producer goroutine.
func (pl *ProductionLine) produce() {
	defer pl.wg.Done()
	for {
		if !pl.running.Load() {
			return
		}

		idx, ok := pl.nextFrameIndex()
		if !ok {
			return
		}

		pool, ok := pl.poolObs.Upgrade()
		if !ok {
			logx.Warn("productionline: pool gone", "pool_id", pl.poolID)
			return
		}

		start := time.Now()

		if pl.w.Injects() {
			// Injection-mode Workers publish their own buffers; a
			// producer must not pre-acquire a free buffer on their
			// behalf (spec.md §4.6.2 step 6).
			if err := pl.w.FillBuffer(idx, nil); err != nil {
				if errors.Is(err, worker.ErrNoFrameYet) {
					// Nothing new to publish yet; this frame index was
					// never consumed, so give it back rather than
					// counting it as skipped.
					pl.nextFrame.Add(-1)
					continue
				}
				if errors.Is(err, worker.ErrAtEnd) {
					// The source is exhausted and injecting Workers never
					// wrap (their cursor is a monotonic counter, not a
					// frame index the Worker honors), so there is nothing
					// left for this goroutine to do.
					return
				}
				pl.recordFailure(idx, err)
				continue
			}
			pl.recordSuccess(start)
			continue
		}

		buf, err := pool.AcquireFree(true, acquireTimeout)
		if err != nil {
			// Pool shut down from under us.
			return
		}
		if buf == nil {
			// Timed out without a buffer; recheck running and retry.
			continue
		}

		fillStart := time.Now()
		err = pl.w.FillBuffer(idx, buf)
		if pl.mon != nil {
			pl.mon.Record("fill", time.Since(fillStart))
		}
		if err != nil {
			pool.ReleaseFree(buf)
			if errors.Is(err, worker.ErrAtEnd) {
				// A finite source (e.g. a software-decoded file) has been
				// fully read; exit cleanly instead of spinning through
				// recordFailure on every subsequent cursor advance.
				return
			}
			pl.recordFailure(idx, err)
			continue
		}
		if err := pool.SubmitFilled(buf); err != nil {
			pool.ReleaseFree(buf)
			pl.recordFailure(idx, err)
			continue
		}
		pl.recordSuccess(start)
	}
}

func (pl *ProductionLine) recordSuccess(start time.Time) {
	pl.producedCount.Add(1)
	if pl.mon != nil {
		pl.mon.Record("produce", time.Since(start))
	}
}

func (pl *ProductionLine) recordFailure(frameIndex int, err error) {
	pl.skippedCount.Add(1)

	pl.errMu.Lock()
	pl.lastErr = err.Error()
	cb := pl.onError
	pl.errMu.Unlock()

	logx.Warn("productionline: fill failed", "frame_index", frameIndex, "err", err)
	if cb != nil {
		cb(frameIndex, err)
	}
}

const infiniteSentinel = -1

// nextFrameIndex atomically advances the shared cursor. It returns
// (0, false) once the source is exhausted and Loop is false. A streaming
// Worker reports TotalFrames as the infinite sentinel (-1); the cursor
// then monotonically increases without ever wrapping, and the Worker
// itself ignores the value.
func (pl *ProductionLine) nextFrameIndex() (int, bool) {
	raw := pl.nextFrame.Add(1) - 1

	if pl.totalFrames == infiniteSentinel {
		return int(raw), true
	}
	if raw < pl.totalFrames {
		return int(raw), true
	}
	if !pl.opts.Loop {
		return 0, false
	}

	// Overflow protection: once raw is close enough to wrapping around
	// int64, reset the cursor back to 0 so fetch-and-add never actually
	// overflows in a long-running loop.
	if raw > (1<<62) {
		pl.nextFrame.Store(0)
		raw = 0
	}
	return int(raw % pl.totalFrames), true
}

// Stop flips running to false, wakes any blocked acquirer by shutting
// down the working pool, joins every producer goroutine, and closes the
// Worker.
func (pl *ProductionLine) Stop() error {
	pl.running.Store(false)
	if pool, ok := pl.poolObs.Upgrade(); ok {
		pool.Shutdown()
	}
	pl.wg.Wait()
	return pl.w.Close()
}

// ProducedFrames is the count of frames this line has successfully
// produced since Start.
func (pl *ProductionLine) ProducedFrames() int64 { return pl.producedCount.Load() }

// SkippedFrames is the count of frames this line has failed to produce
// (and thus skipped) since Start.
func (pl *ProductionLine) SkippedFrames() int64 { return pl.skippedCount.Load() }

// AverageFPS is ProducedFrames divided by elapsed wall time since Start.
func (pl *ProductionLine) AverageFPS() float64 {
	elapsed := time.Since(pl.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(pl.producedCount.Load()) / elapsed
}

// WorkingBufferPoolID is the id of the pool this line's producers drive.
func (pl *ProductionLine) WorkingBufferPoolID() uint64 { return pl.poolID }

// IsRunning reports whether this line is between a successful Start and
// the matching Stop.
func (pl *ProductionLine) IsRunning() bool { return pl.running.Load() }

// LastError returns the most recent producer error, or "" if none have
// occurred since Start.
func (pl *ProductionLine) LastError() string {
	pl.errMu.Lock()
	defer pl.errMu.Unlock()
	return pl.lastErr
}
