/*
DESCRIPTION
  resources.go owns the input texture and CPU-visible staging buffer a raw
  NV12 frame is copied through on its way onto the GPU, and the copy-queue
  fence that tells the encode queue when the upload has landed.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frameresources drives the copy-queue upload of one raw NV12
// frame into a GPU input texture, ahead of the texture being consumed by
// an EncodeFrame command on the encode queue.
package frameresources

import (
	"fmt"

	"github.com/ausocean/hwenc/gpu"
)

// RawFrame is a single planar NV12 frame as provided by the caller of
// Encoder.PushFrame: a luma plane and an interleaved chroma plane, each
// with its own line stride.
type RawFrame interface {
	Y() []byte
	UV() []byte
	LinesizeY() int
	LinesizeUV() int
	Width() int
	Height() int
}

// Resources is a single reusable slot: one input texture, one staging
// buffer sized for it, and the fence tracking its upload. A hwenc.Encoder
// holds a single Resources, so the next frame is not staged until the
// previous one has been encoded and Reset has been called.
type Resources struct {
	device Device
	queue  gpu.Queue

	texture gpu.Texture
	staging gpu.Buffer

	fence      gpu.Fence
	fenceValue uint64

	pending bool
}

// Device is the subset of gpu.Device Resources needs to allocate its
// texture and staging buffer.
type Device interface {
	NewTexture(width, height int, usg gpu.Usage) (gpu.Texture, error)
	NewUploadBuffer(size int64) (gpu.Buffer, error)
}

// New allocates an input texture and staging buffer sized for width x
// height NV12 frames, and binds uploads to queue.
func New(device Device, queue gpu.Queue, width, height int) (*Resources, error) {
	tex, err := device.NewTexture(width, height, gpu.UsageCopyDst|gpu.UsageEncodeInput)
	if err != nil {
		return nil, fmt.Errorf("frameresources: allocate input texture: %w", err)
	}
	size := int64(width*height) + int64(width*height)/2 // Y plane plus interleaved UV at half resolution.
	buf, err := device.NewUploadBuffer(size)
	if err != nil {
		return nil, fmt.Errorf("frameresources: allocate staging buffer: %w", err)
	}
	return &Resources{device: device, queue: queue, texture: tex, staging: buf}, nil
}

// Texture returns the resource's input texture, valid for use in an
// EncodeFrame command once UploadAsync's fence has signaled.
func (r *Resources) Texture() gpu.Texture { return r.texture }

// SetFrame copies raw into the staging buffer's CPU-visible memory. It
// must be called before UploadAsync, and returns an error if called again
// before Reset has been called for the previous frame.
func (r *Resources) SetFrame(raw RawFrame) error {
	if r.pending {
		return fmt.Errorf("frameresources: SetFrame called before previous upload was reset")
	}
	if !r.staging.Visible() {
		return fmt.Errorf("frameresources: staging buffer is not CPU visible")
	}
	dst := r.staging.Bytes()
	ySize := raw.LinesizeY() * raw.Height()
	uvSize := raw.LinesizeUV() * raw.Height() / 2
	if int64(ySize+uvSize) > int64(len(dst)) {
		return fmt.Errorf("frameresources: frame data (%d bytes) exceeds staging buffer capacity (%d bytes)", ySize+uvSize, len(dst))
	}
	copy(dst[:ySize], raw.Y())
	copy(dst[ySize:ySize+uvSize], raw.UV())
	r.pending = true
	return nil
}

// UploadAsync records and submits the copy from the staging buffer into
// the input texture, transitioning it back to its common layout once the
// copy completes, and returns the fence value the encode queue must wait
// on before consuming the texture.
func (r *Resources) UploadAsync() (uint64, error) {
	cl, err := r.queue.NewCmdList()
	if err != nil {
		return 0, fmt.Errorf("frameresources: allocate command list: %w", err)
	}
	if err := cl.CopyBufferToTexture(r.texture, r.staging, 0); err != nil {
		return 0, fmt.Errorf("frameresources: record upload: %w", err)
	}
	cl.Transition([]gpu.Transition{{Tex: r.texture, Before: gpu.LayoutCopyDest, After: gpu.LayoutCommon}})
	if err := cl.Close(); err != nil {
		return 0, fmt.Errorf("frameresources: close command list: %w", err)
	}
	fence, value, err := r.queue.Submit([]gpu.CmdList{cl})
	if err != nil {
		return 0, fmt.Errorf("frameresources: submit upload: %w", err)
	}
	r.fence = fence
	r.fenceValue = value
	return value, nil
}

// WaitForUploadCPU blocks the calling goroutine until the last
// UploadAsync submission has completed.
func (r *Resources) WaitForUploadCPU() error {
	if r.fence == nil {
		return nil
	}
	return r.fence.Wait(r.fenceValue)
}

// GPUWait reports the fence and value the encode queue should wait on
// before consuming this resource's texture, mirroring a queue-side
// Wait() rather than a CPU-side block.
func (r *Resources) GPUWait() (gpu.Fence, uint64) { return r.fence, r.fenceValue }

// Reset clears the pending flag, allowing SetFrame to accept the next
// frame. Call once GPUWait's fence value is known to have been consumed
// by the encode queue.
func (r *Resources) Reset() { r.pending = false }
