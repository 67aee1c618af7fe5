package worker

import "github.com/vladimirvivien/zerocopyvideo/buffer"

// Facade owns exactly one concrete Worker and exposes the same Base
// operations, so a ProductionLine can be built, torn down, and rebuilt
// against a different concrete WorkerType without its caller's code
// changing at all.
type Facade struct {
	w Base
}

// NewFacade wraps an already-constructed Worker (typically one returned
// by Factory.New).
func NewFacade(w Base) *Facade { return &Facade{w: w} }

func (f *Facade) Open() error  { return f.w.Open() }
func (f *Facade) Close() error { return f.w.Close() }
func (f *Facade) Injects() bool { return f.w.Injects() }
func (f *Facade) FillBuffer(frameIndex int, buf *buffer.Buffer) error {
	return f.w.FillBuffer(frameIndex, buf)
}
func (f *Facade) Seek(index int) error            { return f.w.Seek(index) }
func (f *Facade) SeekToBegin() error              { return f.w.SeekToBegin() }
func (f *Facade) SeekToEnd() error                { return f.w.SeekToEnd() }
func (f *Facade) Skip(delta int) error            { return f.w.Skip(delta) }
func (f *Facade) CurrentFrameIndex() int          { return f.w.CurrentFrameIndex() }
func (f *Facade) TotalFrames() int                { return f.w.TotalFrames() }
func (f *Facade) HasMoreFrames() bool             { return f.w.HasMoreFrames() }
func (f *Facade) IsAtEnd() bool                   { return f.w.IsAtEnd() }
func (f *Facade) Width() int                      { return f.w.Width() }
func (f *Facade) Height() int                     { return f.w.Height() }
func (f *Facade) BytesPerPixel() int              { return f.w.BytesPerPixel() }
func (f *Facade) FrameSize() int64                { return f.w.FrameSize() }
func (f *Facade) FileSize() int64                 { return f.w.FileSize() }
func (f *Facade) WorkerType() string              { return f.w.WorkerType() }
func (f *Facade) OutputPoolID() uint64             { return f.w.OutputPoolID() }

var _ Base = (*Facade)(nil)
