package worker

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/iobuf"

	"github.com/vladimirvivien/zerocopyvideo/buffer"
	"github.com/vladimirvivien/zerocopyvideo/decode"
	"github.com/vladimirvivien/zerocopyvideo/registry"
)

// newTestRTSPWorker builds an RTSPWorker around a fake decoderSource,
// bypassing Open (which always dials a real decode.NewDecoder), so
// ingestLoop can be driven directly against a scripted decode sequence —
// in particular an actual end-of-stream transition.
func newTestRTSPWorker(dec decoderSource, depth int) (*RTSPWorker, *buffer.Allocator) {
	reg := registry.New()
	alloc := buffer.NewAVFrameAllocator(reg)
	poolID, _ := alloc.AllocatePoolWithBuffers(0, 0, "ffmpeg_rtsp", "decoded")

	w := &RTSPWorker{
		alloc:      alloc,
		dec:        dec,
		framePool:  decode.NewFramePool(0),
		reorderN:   0,
		frameReady: make(chan struct{}, 1),
		done:       make(chan struct{}),
		poolID:     poolID,
	}
	w.depth = iobuf.NewBoundedPool[uint32](depth)
	w.depth.Fill(func() uint32 { return 0 })
	return w, alloc
}

// TestRTSPWorkerIngestLoopReleasesSlotAtEOF is the review's named crash
// scenario in the RTSP worker's own ingest path: decode ending mid-loop
// must release the depth slot it had acquired and close done, rather than
// hold the slot (or dereference a nil frame) forever.
func TestRTSPWorkerIngestLoopReleasesSlotAtEOF(t *testing.T) {
	w, _ := newTestRTSPWorker(&fakeDecoderSource{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.ingestLoop(ctx)
		close(done)
	}()

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingestLoop did not close done after EOF")
	}
	<-done

	slot, err := w.depth.Get()
	if err != nil {
		t.Fatalf("depth.Get() after EOF: %v (slot was not released)", err)
	}
	w.depth.Put(slot)
}

// TestRTSPWorkerIngestLoopReleasesSlotOnInjectFailure exercises a frame
// that decodes successfully (so it is cloned into the reorder ring and
// reaches InjectDecoderFrame) but fails to publish — the fake decoder
// frame has no real pixel planes, so InjectDecoderFrame rejects it with
// ErrZeroSize — and confirms the depth slot is still released instead of
// being leaked on the error path.
func TestRTSPWorkerIngestLoopReleasesSlotOnInjectFailure(t *testing.T) {
	dec := &fakeDecoderSource{frames: []func() (*decode.Frame, error){
		func() (*decode.Frame, error) { return emptyFrame(t), nil },
	}}
	w, _ := newTestRTSPWorker(dec, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.ingestLoop(ctx)
		close(done)
	}()

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingestLoop did not close done after EOF")
	}
	<-done

	slot, err := w.depth.Get()
	if err != nil {
		t.Fatalf("depth.Get() after run: %v (slot leaked on inject failure)", err)
	}
	w.depth.Put(slot)
}
