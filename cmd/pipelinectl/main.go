// Command pipelinectl is a test harness, not part of the core: it drives
// a single ProductionLine against a chosen Worker kind for a short
// duration and reports the frames it produced. Flag shape mirrors the
// teacher's example binaries (go4vl/examples/*/main.go): bare stdlib
// flag, log.Fatalf on setup failure.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/config"
	"github.com/vladimirvivien/zerocopyvideo/decode"
	"github.com/vladimirvivien/zerocopyvideo/imgsupport"
	"github.com/vladimirvivien/zerocopyvideo/internal/logx"
	"github.com/vladimirvivien/zerocopyvideo/productionline"
	"github.com/vladimirvivien/zerocopyvideo/registry"
	"github.com/vladimirvivien/zerocopyvideo/worker"
)

// workerTypeEnvVar, when set, is read and logged at startup. It does not
// change which Worker a test builds: every test names its WorkerType
// explicitly, and config.Auto resolution does not read it.
const workerTypeEnvVar = "PIPELINECTL_WORKER_TYPE"

type pipelineTest struct {
	name string
	desc string
	run  func(path string) error
}

func runRawTest(workerType config.WorkerType) func(path string) error {
	return func(path string) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		reg := registry.New()
		alloc := buffer.NewNormalAllocator(reg, 0)

		cfg := config.New(
			config.WithWorkerType(workerType),
			config.WithFilePath(path),
			config.WithOutputGeometry(640, 480, 12), // default NV12-ish geometry; override via a real config file in production use
			config.WithBufferCount(8),
		)

		f := worker.NewFactory(worker.Allocators{Normal: alloc})
		w, err := f.New(cfg)
		if err != nil {
			return fmt.Errorf("construct worker: %w", err)
		}

		return drive(reg, w, 3*time.Second)
	}
}

func runRTSPTest(path string) error {
	reg := registry.New()
	alloc := buffer.NewAVFrameAllocator(reg)
	cfg := config.New(
		config.WithWorkerType(config.FFmpegRTSP),
		config.WithFilePath(path),
	)
	f := worker.NewFactory(worker.Allocators{AVFrame: alloc})
	w, err := f.New(cfg)
	if err != nil {
		return fmt.Errorf("construct worker: %w", err)
	}
	return drive(reg, w, 3*time.Second)
}

func runVideoFileTest(path string) error {
	reg := registry.New()
	normal := buffer.NewNormalAllocator(reg, 0)
	avframe := buffer.NewAVFrameAllocator(reg)
	cfg := config.New(
		config.WithWorkerType(config.FFmpegVideoFile),
		config.WithFilePath(path),
	)
	f := worker.NewFactory(worker.Allocators{Normal: normal, AVFrame: avframe})
	w, err := f.New(cfg)
	if err != nil {
		return fmt.Errorf("construct worker: %w", err)
	}
	return drive(reg, w, 3*time.Second)
}

// drive starts a ProductionLine over w, lets it run for duration, then
// stops it and prints a frame-rate summary.
func drive(reg *registry.Registry, w worker.Base, duration time.Duration) error {
	pl := productionline.New(w, productionline.Options{ThreadCount: 2, Loop: true, EnableMonitor: true})
	pl.SetErrorCallback(func(frameIndex int, err error) {
		logx.Warn("pipelinectl: frame failed", "frame_index", frameIndex, "err", err)
	})

	if err := pl.Start(reg); err != nil {
		return fmt.Errorf("start production line: %w", err)
	}

	pool, ok := reg.ResolvePool(pl.WorkingBufferPoolID())
	if !ok {
		pl.Stop()
		return fmt.Errorf("working pool %d not found in registry", pl.WorkingBufferPoolID())
	}

	deadline := time.Now().Add(duration)
	consumed := 0
	for time.Now().Before(deadline) {
		buf, err := pool.AcquireFilled(true, 100*time.Millisecond)
		if err != nil {
			break
		}
		if buf == nil {
			continue
		}
		consumed++
		pool.ReleaseFilled(buf)
	}

	if err := pl.Stop(); err != nil {
		return fmt.Errorf("stop production line: %w", err)
	}

	fmt.Printf("consumed %d frames, produced %d, skipped %d, average %.2f fps\n",
		consumed, pl.ProducedFrames(), pl.SkippedFrames(), pl.AverageFPS())
	return nil
}

// runSnapshotTest decodes the first frame of path and writes it to
// <path>.jpg, independent of the buffer/worker pipeline — a direct
// exercise of the decode+imgsupport pairing for a quick visual sanity
// check of a source file.
func runSnapshotTest(path string) error {
	dec, err := decode.NewDecoder(path)
	if err != nil {
		return fmt.Errorf("open decoder: %w", err)
	}
	defer dec.Close()

	frame, err := dec.ReadFrame()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	defer frame.Release()

	jpegData, err := imgsupport.FrameToJPEG(frame, 90)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	out := path + ".jpg"
	if err := os.WriteFile(out, jpegData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote snapshot %s (%d bytes)\n", out, len(jpegData))
	return nil
}

func registeredTests() []pipelineTest {
	tests := []pipelineTest{
		{"mmap_raw", "memory-mapped raw frame file", runRawTest(config.MmapRaw)},
		{"iouring_raw", "async raw frame file (depth-limited reads)", runRawTest(config.IOUringRaw)},
		{"ffmpeg_video_file", "container-encoded file via ffgo decode", runVideoFileTest},
		{"ffmpeg_rtsp", "live RTSP stream via ffgo decode", runRTSPTest},
		{"snapshot", "decode one frame and write it as a JPEG", runSnapshotTest},
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].name < tests[j].name })
	return tests
}

func main() {
	var testName string
	var listTests bool
	flag.StringVar(&testName, "m", "", "test name to run (see -list)")
	flag.BoolVar(&listTests, "list", false, "list available test names and exit")
	flag.Parse()

	tests := registeredTests()

	if listTests {
		fmt.Println("available tests:")
		for _, t := range tests {
			fmt.Printf("  %-20s %s\n", t.name, t.desc)
		}
		return
	}

	if testName == "" || flag.NArg() < 1 {
		log.Fatal("usage: pipelinectl -m <test_name> <path> (or -list)")
	}
	path := flag.Arg(0)

	if override := os.Getenv(workerTypeEnvVar); override != "" {
		logx.Info("pipelinectl: worker type override", "env", workerTypeEnvVar, "value", override)
	}

	var selected *pipelineTest
	for i := range tests {
		if tests[i].name == testName {
			selected = &tests[i]
			break
		}
	}
	if selected == nil {
		log.Fatalf("unknown test %q; run with -list to see available tests", testName)
	}

	if err := selected.run(path); err != nil {
		log.Fatalf("%s: %v", selected.name, err)
	}
}
