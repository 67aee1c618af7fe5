package worker

import (
	"time"

	"github.com/vladimirvivien/zerocopyvideo/decode"
)

// decoderSource is the subset of *decode.Decoder that EncodedFileWorker and
// RTSPWorker depend on. Extracting it lets tests drive FillBuffer,
// InjectNextFrame and ingestLoop through a fake decoder — in particular
// through an actual end-of-stream transition — without a real media file or
// FFmpeg decode session. *decode.Decoder satisfies this interface as-is.
type decoderSource interface {
	ReadFrame() (*decode.Frame, error)
	Seek(ts time.Duration) error
	Close() error
	Width() int
	Height() int
	FrameCount() int64
}

var _ decoderSource = (*decode.Decoder)(nil)
