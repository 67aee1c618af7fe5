package decode

import (
	"errors"
	"io"
	"testing"

	"github.com/obinnaokechukwu/ffgo"
)

func TestFrameFromReadResultEOF(t *testing.T) {
	f, err := frameFromReadResult(nil, nil)
	if f != nil {
		t.Errorf("frame = %v, want nil", f)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestFrameFromReadResultDecodeError(t *testing.T) {
	wantErr := errors.New("boom")
	f, err := frameFromReadResult(nil, wantErr)
	if f != nil {
		t.Errorf("frame = %v, want nil", f)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestFrameFromReadResultFrame(t *testing.T) {
	raw := ffgo.FrameAlloc()
	defer ffgo.FrameFree(&raw)

	fw := ffgo.WrapFrame(raw, ffgo.MediaTypeVideo)
	f, err := frameFromReadResult(fw, nil)
	if err != nil {
		t.Fatalf("frameFromReadResult: %v", err)
	}
	if f == nil {
		t.Fatal("frame = nil, want non-nil")
	}
}
