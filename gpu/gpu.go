/*
DESCRIPTION
  gpu.go defines the abstraction over a hardware video encode device: the
  queues, resources, barriers and fences needed to drive a GPU-accelerated
  H.264 encode pipeline without depending on any particular graphics API.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package gpu abstracts the subset of a hardware video encode device this
// encoder drives: copy and encode command submission, texture/buffer
// resources, layout transitions and fences. An implementation backs these
// interfaces with a real driver (e.g. DX12 Video Encode, VAAPI); tests back
// them with an in-memory fake.
package gpu

// Device is the entry point to a hardware video encode adapter. It creates
// the resources an Encoder needs and exposes the queues commands are
// submitted on.
type Device interface {
	// NewTexture allocates a 2D NV12 texture of the given pixel
	// dimensions, usable as usg permits.
	NewTexture(width, height int, usg Usage) (Texture, error)

	// NewUploadBuffer allocates a CPU-visible buffer of size bytes for
	// staging raw frame data before it is copied into a texture.
	NewUploadBuffer(size int64) (Buffer, error)

	// NewMetadataBuffer allocates a buffer the device writes per-frame
	// encode statistics (bitstream size, QP, slice sizes) into.
	NewMetadataBuffer(size int64) (Buffer, error)

	// CopyQueue returns the queue used for uploads and other transfer
	// operations.
	CopyQueue() Queue

	// EncodeQueue returns the queue used for EncodeFrame and
	// ResolveEncoderOutputMetadata commands.
	EncodeQueue() Queue

	// Limits returns the implementation's fixed capabilities.
	Limits() Limits
}

// Limits describes immutable properties of a Device.
type Limits struct {
	MaxReferenceFrames  int
	MaxEncodeWidth      int
	MaxEncodeHeight     int
	RequiredAlignment   int // alignment required of encoded-header buffer offsets.
}

// Usage is a bitmask of valid uses for a Texture or Buffer.
type Usage int

const (
	UsageCopyDst Usage = 1 << iota
	UsageCopySrc
	UsageEncodeReference
	UsageEncodeReconstructed
	UsageEncodeInput
)

// Layout is the state a Texture subresource is in, analogous to a D3D12
// resource state. Commands that read or write a texture require it to be
// in the layout that operation expects; Transition moves it between them.
type Layout int

const (
	LayoutCommon Layout = iota
	LayoutCopyDest
	LayoutCopySource
	LayoutEncodeRead
	LayoutEncodeWrite
)

// Texture is an opaque 2D NV12 surface: an input frame, a reconstructed
// reference picture, or a staging surface for one.
type Texture interface {
	Width() int
	Height() int
}

// Buffer is an opaque linear memory resource, optionally CPU-visible.
type Buffer interface {
	// Visible reports whether Bytes returns usable memory.
	Visible() bool

	// Bytes returns the buffer's backing memory for a CPU-visible
	// buffer, or nil otherwise.
	Bytes() []byte

	Size() int64
}

// Fence is a monotonic counter signaled by the device when queued work
// reaches a given point. Encoder's WaitForEncodedFrame blocks in Wait on a
// separate goroutine so Terminate can interrupt it; Encoder does not call
// Signaled.
type Fence interface {
	// Signaled reports whether value has already been reached.
	Signaled(value uint64) bool

	// Wait blocks until value is reached.
	Wait(value uint64) error
}

// Queue accepts command lists for execution and signals a fence once they
// complete.
type Queue interface {
	// NewCmdList allocates a command list bound to this queue's command
	// list type (copy or video-encode).
	NewCmdList() (CmdList, error)

	// Submit executes cl in order and returns the fence value reached
	// when all of them complete.
	Submit(cl []CmdList) (Fence, uint64, error)
}

// CmdList records a sequence of commands for later submission to a Queue.
// A single CmdList is not safe for concurrent recording.
type CmdList interface {
	// CopyBufferToTexture uploads src (an NV12-laid-out CPU buffer) to
	// dst, starting at srcOffset.
	CopyBufferToTexture(dst Texture, src Buffer, srcOffset int64) error

	// Transition records a layout transition for each entry in t.
	Transition(t []Transition)

	// EncodeFrame records an EncodeFrame command: encode input using
	// the given picture parameters and reference set, writing
	// compressed data to output starting at outputOffset and metadata
	// to metadata.
	EncodeFrame(input Texture, params PictureParams, refs []Texture, output Buffer, outputOffset int64, metadata Buffer) error

	// ResolveEncoderOutputMetadata records a command that converts the
	// opaque metadata buffer written by EncodeFrame into the
	// structured ResolvedMetadata form, available after the fence
	// reached by this command list's submission is signaled.
	ResolveEncoderOutputMetadata(metadata Buffer) (*ResolvedMetadataHandle, error)

	// Close ends recording; the CmdList is ready for submission.
	Close() error

	// Reset discards any recorded commands so the list can be rerecorded.
	Reset() error
}

// Transition describes a layout change on a single Texture.
type Transition struct {
	Tex    Texture
	Before Layout
	After  Layout
}

// PictureParams carries the per-frame control values an EncodeFrame
// command needs beyond the reference set: frame type, QP, and reference
// list indices. It intentionally holds no pointers into encoder-internal
// state so it can be copied into a command list's recording.
type PictureParams struct {
	FrameType         FrameType
	FrameNumber       uint32
	PicOrderCntLsb    uint32
	IDRPicID          uint32
	QP                int
	L0                []int // indices into the refs slice passed to EncodeFrame.
	L1                []int
	ConstantQP        [3]int // I, P, B QP values, per the device's rate-control contract.
}

// FrameType mirrors the coded slice type an EncodeFrame call produces.
type FrameType int

const (
	FrameTypeIDR FrameType = iota
	FrameTypeI
	FrameTypeP
	FrameTypeB
)

// ResolvedMetadataHandle is returned by ResolveEncoderOutputMetadata; its
// fields are only valid for reading once the fence value reached by the
// owning submission has been signaled.
type ResolvedMetadataHandle struct {
	// EncodedSize is the number of compressed bytes EncodeFrame wrote
	// into the output buffer, starting at its outputOffset.
	EncodedSize func() (int64, error)
}
