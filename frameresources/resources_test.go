/*
DESCRIPTION
  resources_test.go provides testing for the staging-buffer upload cycle
  in resources.go, against an in-memory fake of the gpu package's
  interfaces.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package frameresources

import (
	"testing"

	"github.com/ausocean/hwenc/gpu"
)

type fakeTexture struct{ width, height int }

func (t *fakeTexture) Width() int  { return t.width }
func (t *fakeTexture) Height() int { return t.height }

type fakeBuffer struct {
	data    []byte
	visible bool
}

func (b *fakeBuffer) Visible() bool  { return b.visible }
func (b *fakeBuffer) Bytes() []byte  { return b.data }
func (b *fakeBuffer) Size() int64    { return int64(len(b.data)) }

type fakeFence struct{ value uint64 }

func (f *fakeFence) Signaled(value uint64) bool { return value <= f.value }
func (f *fakeFence) Wait(value uint64) error    { return nil }

type fakeCmdList struct {
	q        *fakeQueue
	copies   int
	closed   bool
}

func (c *fakeCmdList) CopyBufferToTexture(dst gpu.Texture, src gpu.Buffer, srcOffset int64) error {
	c.copies++
	return nil
}
func (c *fakeCmdList) Transition(t []gpu.Transition) {}
func (c *fakeCmdList) EncodeFrame(gpu.Texture, gpu.PictureParams, []gpu.Texture, gpu.Buffer, int64, gpu.Buffer) error {
	return nil
}
func (c *fakeCmdList) ResolveEncoderOutputMetadata(gpu.Buffer) (*gpu.ResolvedMetadataHandle, error) {
	return nil, nil
}
func (c *fakeCmdList) Close() error { c.closed = true; return nil }
func (c *fakeCmdList) Reset() error { return nil }

type fakeQueue struct {
	fence     fakeFence
	submitted int
}

func (q *fakeQueue) NewCmdList() (gpu.CmdList, error) { return &fakeCmdList{q: q}, nil }
func (q *fakeQueue) Submit(cl []gpu.CmdList) (gpu.Fence, uint64, error) {
	q.submitted++
	q.fence.value++
	return &q.fence, q.fence.value, nil
}

type fakeDevice struct{}

func (d *fakeDevice) NewTexture(width, height int, usg gpu.Usage) (gpu.Texture, error) {
	return &fakeTexture{width: width, height: height}, nil
}
func (d *fakeDevice) NewUploadBuffer(size int64) (gpu.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size), visible: true}, nil
}

type fakeRawFrame struct {
	y, uv          []byte
	width, height  int
	strideY, strideUV int
}

func (f *fakeRawFrame) Y() []byte         { return f.y }
func (f *fakeRawFrame) UV() []byte        { return f.uv }
func (f *fakeRawFrame) LinesizeY() int    { return f.strideY }
func (f *fakeRawFrame) LinesizeUV() int   { return f.strideUV }
func (f *fakeRawFrame) Width() int        { return f.width }
func (f *fakeRawFrame) Height() int       { return f.height }

func newTestFrame(width, height int) *fakeRawFrame {
	return &fakeRawFrame{
		y:        make([]byte, width*height),
		uv:       make([]byte, width*height/2),
		width:    width,
		height:   height,
		strideY:  width,
		strideUV: width,
	}
}

func TestSetFrameThenUploadAsync(t *testing.T) {
	dev := &fakeDevice{}
	queue := &fakeQueue{}
	r, err := New(dev, queue, 64, 64)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if err := r.SetFrame(newTestFrame(64, 64)); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	value, err := r.UploadAsync()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if value == 0 {
		t.Error("expected a non-zero fence value after upload")
	}
	if queue.submitted != 1 {
		t.Errorf("got %d submissions, want 1", queue.submitted)
	}
}

func TestSetFrameRejectsSecondCallBeforeReset(t *testing.T) {
	dev := &fakeDevice{}
	queue := &fakeQueue{}
	r, err := New(dev, queue, 64, 64)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if err := r.SetFrame(newTestFrame(64, 64)); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if err := r.SetFrame(newTestFrame(64, 64)); err == nil {
		t.Fatal("expected an error calling SetFrame before Reset")
	}
	r.Reset()
	if err := r.SetFrame(newTestFrame(64, 64)); err != nil {
		t.Errorf("did not expect error after Reset: %v", err)
	}
}

func TestSetFrameRejectsOversizedFrame(t *testing.T) {
	dev := &fakeDevice{}
	queue := &fakeQueue{}
	r, err := New(dev, queue, 64, 64)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if err := r.SetFrame(newTestFrame(128, 128)); err == nil {
		t.Fatal("expected an error for a frame larger than the staging buffer")
	}
}
