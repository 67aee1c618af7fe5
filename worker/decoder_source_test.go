package worker

import (
	"io"
	"sync"
	"time"

	"github.com/vladimirvivien/zerocopyvideo/decode"
)

// fakeDecoderSource drives FillBuffer/InjectNextFrame/ingestLoop through a
// scripted sequence of ReadFrame results, including an actual io.EOF
// transition, without needing a real media file or FFmpeg decode session.
type fakeDecoderSource struct {
	mu     sync.Mutex
	frames []func() (*decode.Frame, error)
	next   int
	closed bool
}

func (f *fakeDecoderSource) ReadFrame() (*decode.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.frames) {
		return nil, io.EOF
	}
	fn := f.frames[f.next]
	f.next++
	return fn()
}

func (f *fakeDecoderSource) Seek(time.Duration) error { return nil }

func (f *fakeDecoderSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDecoderSource) Width() int       { return 16 }
func (f *fakeDecoderSource) Height() int      { return 16 }
func (f *fakeDecoderSource) FrameCount() int64 { return 0 }

// emptyFrame returns a real, owned, but content-empty *decode.Frame (no
// pixel planes) via decode's own pool, the only way to construct a Frame
// from outside the decode package. Good enough to exercise control flow
// (EOF handling, cloning, release bookkeeping); not sufficient to exercise
// the actual pixel-plane copy/inject paths, which need real decoded data.
func emptyFrame(t interface {
	Helper()
	Fatalf(string, ...any)
}) *decode.Frame {
	t.Helper()
	fp := decode.NewFramePool(0)
	f, err := fp.Get()
	if err != nil {
		t.Fatalf("decode.NewFramePool(0).Get(): %v", err)
	}
	return f
}
