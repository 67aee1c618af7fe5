package worker

import (
	"fmt"
	"runtime"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
)

// Allocators bundles the concrete Allocators a Factory may need to hand to
// whichever concrete Worker it constructs. A caller building a single-kind
// pipeline only needs to populate the field its chosen WorkerType uses.
type Allocators struct {
	Normal  *buffer.Allocator // mmap_raw, iouring_raw, software-decode ffmpeg_video_file
	AVFrame *buffer.Allocator // hardware-decode ffmpeg_video_file, ffmpeg_rtsp
}

// Factory constructs a concrete Worker for a config.WorkerType, resolving
// Auto to a concrete type by probing host capabilities.
type Factory struct {
	allocs Allocators
}

// NewFactory returns a Factory that hands the given allocators to whatever
// concrete Worker it builds.
func NewFactory(allocs Allocators) *Factory {
	return &Factory{allocs: allocs}
}

// New constructs the Worker named by cfg.Type (resolving config.Auto via
// Probe) but does not call Open on it.
func (f *Factory) New(cfg config.WorkerConfig) (Base, error) {
	t := cfg.Type
	if t == config.Auto {
		t = f.Probe()
	}

	switch t {
	case config.MmapRaw:
		if f.allocs.Normal == nil {
			return nil, fmt.Errorf("worker: mmap_raw requires a Normal allocator")
		}
		return NewMmapRawWorker(cfg, f.allocs.Normal), nil
	case config.IOUringRaw:
		if f.allocs.Normal == nil {
			return nil, fmt.Errorf("worker: iouring_raw requires a Normal allocator")
		}
		return NewAsyncRawWorker(cfg, f.allocs.Normal), nil
	case config.FFmpegVideoFile:
		return NewEncodedFileWorker(cfg, f.allocs.Normal, f.allocs.AVFrame), nil
	case config.FFmpegRTSP:
		if f.allocs.AVFrame == nil {
			return nil, fmt.Errorf("worker: ffmpeg_rtsp requires an AVFrame allocator")
		}
		return NewRTSPWorker(cfg, f.allocs.AVFrame), nil
	default:
		return nil, fmt.Errorf("worker: unknown worker type %v", t)
	}
}

// Probe resolves config.Auto to a concrete WorkerType by checking what the
// host actually supports: io_uring-style async I/O is Linux-only, so
// anywhere else falls back to the plain mmap path.
func (f *Factory) Probe() config.WorkerType {
	if runtime.GOOS == "linux" && f.allocs.Normal != nil {
		return config.IOUringRaw
	}
	return config.MmapRaw
}
