package config

// WorkerType selects a concrete Worker implementation.
type WorkerType uint8

const (
	// Auto lets worker.Factory.Probe pick a concrete type: IOUringRaw on
	// Linux when a Normal allocator is present, MmapRaw otherwise. It does
	// not test whether mmap or io_uring actually work on the host, and it
	// does not consult decode's hardware-accel devices.
	Auto WorkerType = iota
	MmapRaw
	IOUringRaw
	FFmpegRTSP
	FFmpegVideoFile
)

func (t WorkerType) String() string {
	switch t {
	case MmapRaw:
		return "mmap_raw"
	case IOUringRaw:
		return "iouring_raw"
	case FFmpegRTSP:
		return "ffmpeg_rtsp"
	case FFmpegVideoFile:
		return "ffmpeg_video_file"
	default:
		return "auto"
	}
}

// Rectangle is a crop or scale target region, in pixels.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// HardwareDecode is the optional hardware-specific sub-record of Decoder
// configuration; it is only consulted when Decoder.EnableHardware is true.
type HardwareDecode struct {
	DisableReorder bool
	TwoChannel     bool
	RGBFormat      string
	ColorStandard  string
	Crop           *Rectangle
	Scale          *Rectangle
}

// File groups the input-side settings common to every Worker kind.
type File struct {
	Path       string
	StartFrame int
	EndFrame   int // -1 means "all"
}

// Output groups the raw-frame geometry a Worker produces when it isn't
// simply passing through a decoder's native geometry.
type Output struct {
	Width, Height int
	BitsPerPixel  int
}

// Decoder groups the decode-side settings for encoded-media Workers. Name
// empty means auto-select; HWAccelDevice empty means software decode.
type Decoder struct {
	Name           string
	EnableHardware bool
	HWAccelDevice  string
	DecodeThreads  int
	Hardware       *HardwareDecode
}

// WorkerConfig is the single nested record a Worker is built from,
// mirroring spec.md's File/Output/Decoder/WorkerType grouping.
type WorkerConfig struct {
	Type    WorkerType
	File    File
	Output  Output
	Decoder Decoder

	bufferCount int
}

// Option is a functional option for building a WorkerConfig, in the same
// shape as the device package's Option func(*config).
type Option func(*WorkerConfig)

// New builds a WorkerConfig from the given options. Fields left unset by
// every option keep their zero values (Type defaults to Auto, EndFrame to
// 0 — callers that want "all frames" must set WithEndFrame(-1)
// explicitly, since the zero value cannot distinguish "unset" from "0").
func New(opts ...Option) WorkerConfig {
	cfg := WorkerConfig{bufferCount: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// BufferCount is the number of buffers the Worker's working pool should
// be allocated with. Defaults to 4.
func (c WorkerConfig) BufferCount() int { return c.bufferCount }

func WithWorkerType(t WorkerType) Option {
	return func(c *WorkerConfig) { c.Type = t }
}

func WithFilePath(path string) Option {
	return func(c *WorkerConfig) { c.File.Path = path }
}

func WithFrameRange(start, end int) Option {
	return func(c *WorkerConfig) {
		c.File.StartFrame = start
		c.File.EndFrame = end
	}
}

func WithOutputGeometry(width, height, bitsPerPixel int) Option {
	return func(c *WorkerConfig) {
		c.Output.Width = width
		c.Output.Height = height
		c.Output.BitsPerPixel = bitsPerPixel
	}
}

func WithBufferCount(n int) Option {
	return func(c *WorkerConfig) { c.bufferCount = n }
}

func WithDecoderName(name string) Option {
	return func(c *WorkerConfig) { c.Decoder.Name = name }
}

func WithHardwareDecode(device string) Option {
	return func(c *WorkerConfig) {
		c.Decoder.EnableHardware = true
		c.Decoder.HWAccelDevice = device
	}
}

func WithDecodeThreads(n int) Option {
	return func(c *WorkerConfig) { c.Decoder.DecodeThreads = n }
}

func WithHardwareOptions(hw HardwareDecode) Option {
	return func(c *WorkerConfig) { c.Decoder.Hardware = &hw }
}
