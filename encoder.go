/*
DESCRIPTION
  encoder.go implements Encoder, the top-level orchestrator that drives a
  GPU video-encode device through a hardware-accelerated H.264 encode of a
  pushed sequence of raw NV12 frames: GOP planning, reference bookkeeping,
  frame upload, EncodeFrame submission, and metadata resolution.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hwenc implements a hardware-accelerated, constant-QP H.264
// elementary stream encoder on top of a GPU video-encode device: a fixed
// IDR/P/B GOP structure, a decoded picture buffer of reconstructed
// reference textures, and the NAL-level SPS/PPS/slice framing of its
// output.
package hwenc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ausocean/hwenc/config"
	"github.com/ausocean/hwenc/frameresources"
	"github.com/ausocean/hwenc/gopplanner"
	"github.com/ausocean/hwenc/gpu"
	"github.com/ausocean/hwenc/h264"
	"github.com/ausocean/hwenc/refmanager"
	"github.com/ausocean/hwenc/refpool"
)

// outputBitstreamSizeFactor sizes the compressed output buffer relative to
// the raw frame size; the device never tells us a tighter bound ahead of
// time, so this over-allocates rather than risk truncation. A sustained
// high-entropy scene could still exceed it; there is no grow-and-retry path.
const outputBitstreamSizeFactor = 4

// metadataBufferSize is large enough for one frame's resolved metadata
// record; the device never needs more than one frame in flight per
// Encoder.
const metadataBufferSize = 4096

// EncodedFrame is one compressed access unit: a PPS NAL unit (preceded by
// an SPS on the first frame), zero-padded to HeaderAlignment, followed by
// the coded slice data.
type EncodedFrame struct {
	Data                []byte
	PictureOrderCount   uint32
	DecodingOrderNumber uint64
	IsKeyFrame          bool
}

// inFlight tracks the frame currently submitted to the device, between a
// StartEncodingPushedFrame call and the matching WaitForEncodedFrame.
type inFlight struct {
	planned   gopplanner.Planned
	fence     gpu.Fence
	value     uint64
	headerLen int
	metadata  *gpu.ResolvedMetadataHandle
}

// Encoder drives a gpu.Device through a GOP-planned, reference-managed
// H.264 encode of pushed frames. A single Encoder must only be used by
// one goroutine at a time for PushFrame/StartEncodingPushedFrame/
// WaitForEncodedFrame, which must be called in that order, repeatedly,
// until Flush or Terminate end the sequence.
type Encoder struct {
	cfg    config.Config
	device gpu.Device

	planner  *gopplanner.Planner
	pool     *refpool.Pool
	refs     *refmanager.Manager
	headers  *h264.HeaderBuilder
	frameRes *frameresources.Resources

	outputBuf   gpu.Buffer
	metadataBuf gpu.Buffer

	mu          sync.Mutex
	current     *inFlight
	terminated  bool
	terminateCh chan struct{}
}

// New validates cfg and allocates every GPU resource an encode of
// cfg.Width x cfg.Height frames will need: the input/staging texture
// pair, the reference texture pool, and the compressed-output and
// metadata buffers.
func New(cfg config.Config, device gpu.Device) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newConfigurationError(err)
	}

	limits := device.Limits()
	maxRefs := int(cfg.MaxReferenceFrameCount)
	if maxRefs == 0 {
		maxRefs = 1
	}
	if limits.MaxReferenceFrames > 0 && maxRefs > limits.MaxReferenceFrames {
		return nil, newConfigurationError(errors.Errorf("requested %d reference frames exceeds device limit %d", maxRefs, limits.MaxReferenceFrames))
	}

	pool, err := refpool.New(referenceAllocator{device: device}, cfg.Width, cfg.Height, maxRefs)
	if err != nil {
		return nil, newDeviceError(errors.Wrap(err, "allocate reference pool"))
	}

	frameRes, err := frameresources.New(device, device.CopyQueue(), cfg.Width, cfg.Height)
	if err != nil {
		return nil, newDeviceError(errors.Wrap(err, "allocate frame resources"))
	}

	outputSize := int64(outputBitstreamSizeFactor * cfg.Width * cfg.Height)
	outputBuf, err := device.NewUploadBuffer(outputSize)
	if err != nil {
		return nil, newDeviceError(errors.Wrap(err, "allocate output bitstream buffer"))
	}

	metadataBuf, err := device.NewMetadataBuffer(metadataBufferSize)
	if err != nil {
		return nil, newDeviceError(errors.Wrap(err, "allocate metadata buffer"))
	}

	headers := h264.NewHeaderBuilder(h264.BuilderConfig{
		Width:                cfg.Width,
		Height:               cfg.Height,
		KeyFrameInterval:     cfg.KeyFrameInterval,
		MaxRefFrames:         cfg.MaxReferenceFrameCount,
		Direct8x8Inference:   true,
		EntropyCodingMode:    true,
		ConstrainedIntraPred: false,
	})

	e := &Encoder{
		cfg:         cfg,
		device:      device,
		planner:     gopplanner.New(uint64(cfg.KeyFrameInterval), uint64(cfg.BFramesCount), uint64(maxRefs)),
		pool:        pool,
		refs:        refmanager.New(pool, maxRefs),
		headers:     headers,
		frameRes:    frameRes,
		outputBuf:   outputBuf,
		metadataBuf: metadataBuf,
		terminateCh: make(chan struct{}),
	}
	cfg.Logger.Debug("encoder constructed", "width", cfg.Width, "height", cfg.Height, "keyFrameInterval", cfg.KeyFrameInterval, "bFramesCount", cfg.BFramesCount)
	return e, nil
}

// PushFrame hands raw to the GOP planner in display order. It does not
// touch the GPU; a B frame may sit buffered for several subsequent
// PushFrame calls before StartEncodingPushedFrame can submit it.
func (e *Encoder) PushFrame(raw frameresources.RawFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return newProtocolMisuseError(errors.New("PushFrame called after Terminate"))
	}
	e.planner.Push(raw)
	return nil
}

// StartEncodingPushedFrame submits the next frame the GOP planner has
// ready, in decoding order, for encoding on the device. It returns false
// if no frame is currently ready (a B frame awaiting its future reference,
// or nothing was pushed since the last call).
func (e *Encoder) StartEncodingPushedFrame() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return false, newProtocolMisuseError(errors.New("StartEncodingPushedFrame called after Terminate"))
	}
	if e.current != nil {
		return false, newProtocolMisuseError(errors.New("StartEncodingPushedFrame called before WaitForEncodedFrame for the previous frame"))
	}

	planned, ok := e.planner.Next()
	if !ok {
		return false, nil
	}

	raw, ok := planned.Frame.(frameresources.RawFrame)
	if !ok {
		return false, newProtocolMisuseError(errors.New("pushed frame does not implement frameresources.RawFrame"))
	}

	if err := e.frameRes.SetFrame(raw); err != nil {
		return false, newDeviceError(err)
	}
	if _, err := e.frameRes.UploadAsync(); err != nil {
		return false, newDeviceError(err)
	}

	isIDR := planned.FrameType == gopplanner.IDR
	isIntra := isIDR || planned.FrameType == gopplanner.I
	if err := e.refs.PrepareForFrame(isIDR, planned.UseAsReference); err != nil {
		return false, newDeviceError(err)
	}

	refs := e.refs.GetReferenceFrames(isIntra)
	l0, err := e.refs.MapPOCListToIndices(planned.L0)
	if err != nil {
		return false, newInvalidReferenceError(err)
	}
	l1, err := e.refs.MapPOCListToIndices(planned.L1)
	if err != nil {
		return false, newInvalidReferenceError(err)
	}

	header := e.headers.Build(false, e.cfg.HeaderAlignment)
	if err := e.writeHeaderPrefix(header); err != nil {
		return false, newDeviceError(err)
	}

	params := gpu.PictureParams{
		FrameType:      encoderFrameType(planned.FrameType),
		FrameNumber:    planned.FrameNumber,
		PicOrderCntLsb: planned.PictureOrderCount,
		IDRPicID:       planned.IDRPicID,
		L0:             l0,
		L1:             l1,
		ConstantQP:     [3]int{e.cfg.QPIntra, e.cfg.QPInterP, e.cfg.QPInterB},
	}

	cl, err := e.device.EncodeQueue().NewCmdList()
	if err != nil {
		return false, newDeviceError(err)
	}

	input := e.frameRes.Texture()
	fence, value := e.frameRes.GPUWait()
	_ = fence // the device implicitly orders the encode queue after the copy queue's submission via value.
	_ = value

	transitions := []gpu.Transition{{Tex: input, Before: gpu.LayoutCommon, After: gpu.LayoutEncodeRead}}
	for _, r := range refs {
		transitions = append(transitions, gpu.Transition{Tex: r, Before: gpu.LayoutCommon, After: gpu.LayoutEncodeRead})
	}
	if recon := e.refs.CurrentReconstructed(); recon != nil {
		transitions = append(transitions, gpu.Transition{Tex: recon, Before: gpu.LayoutCommon, After: gpu.LayoutEncodeWrite})
	}
	cl.Transition(transitions)

	if err := cl.EncodeFrame(input, params, refs, e.outputBuf, int64(len(header)), e.metadataBuf); err != nil {
		return false, newDeviceError(err)
	}

	revert := make([]gpu.Transition, len(transitions))
	for i, t := range transitions {
		revert[i] = gpu.Transition{Tex: t.Tex, Before: t.After, After: t.Before}
	}
	cl.Transition(revert)

	handle, err := cl.ResolveEncoderOutputMetadata(e.metadataBuf)
	if err != nil {
		return false, newDeviceError(err)
	}

	if err := cl.Close(); err != nil {
		return false, newDeviceError(err)
	}

	encFence, encValue, err := e.device.EncodeQueue().Submit([]gpu.CmdList{cl})
	if err != nil {
		return false, newDeviceError(err)
	}

	e.current = &inFlight{
		planned:   planned,
		fence:     encFence,
		value:     encValue,
		headerLen: len(header),
		metadata:  handle,
	}

	e.cfg.Logger.Info("submitted frame", "type", planned.FrameType.String(), "poc", planned.PictureOrderCount, "decOrder", planned.DecodingOrderNumber)
	return true, nil
}

// WaitForEncodedFrame blocks until the frame submitted by
// StartEncodingPushedFrame finishes encoding, or Terminate is called,
// whichever happens first. It returns ok=false if Terminate won the race.
func (e *Encoder) WaitForEncodedFrame() (frame EncodedFrame, ok bool, err error) {
	e.mu.Lock()
	in := e.current
	e.mu.Unlock()

	if in == nil {
		return EncodedFrame{}, false, newProtocolMisuseError(errors.New("WaitForEncodedFrame called with no frame in flight"))
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- in.fence.Wait(in.value) }()

	select {
	case <-e.terminateCh:
		return EncodedFrame{}, false, nil
	case werr := <-waitErr:
		if werr != nil {
			return EncodedFrame{}, false, newDeviceError(werr)
		}
	}

	size, err := in.metadata.EncodedSize()
	if err != nil {
		return EncodedFrame{}, false, newEncodingError(err)
	}

	total := in.headerLen + int(size)
	data := make([]byte, total)
	if e.outputBuf.Visible() {
		copy(data, e.outputBuf.Bytes()[:total])
	}

	e.mu.Lock()
	e.refs.UpdateAfterEmission(in.planned.PictureOrderCount, in.planned.FrameNumber)
	e.planner.OnEmitted()
	e.current = nil
	e.mu.Unlock()

	e.frameRes.Reset()

	return EncodedFrame{
		Data:                data,
		PictureOrderCount:   in.planned.PictureOrderCount,
		DecodingOrderNumber: in.planned.DecodingOrderNumber,
		IsKeyFrame:          in.planned.FrameType == gopplanner.IDR || in.planned.FrameType == gopplanner.I,
	}, true, nil
}

// Flush converts every buffered B frame to a P frame so the sequence can
// end (or a forced IDR can follow) without orphaning pictures that will
// never gain their future reference.
func (e *Encoder) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.planner.Flush()
}

// Terminate unblocks any in-progress WaitForEncodedFrame call and marks
// the Encoder unusable for further PushFrame/StartEncodingPushedFrame
// calls.
func (e *Encoder) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return
	}
	e.terminated = true
	close(e.terminateCh)
}

func (e *Encoder) writeHeaderPrefix(header []byte) error {
	if len(header) == 0 || !e.outputBuf.Visible() {
		return nil
	}
	copy(e.outputBuf.Bytes(), header)
	return nil
}

// referenceAllocator adapts a gpu.Device to refpool.Allocator, fixing the
// usage flags every reconstructed-picture texture needs.
type referenceAllocator struct{ device gpu.Device }

func (a referenceAllocator) NewTexture(width, height int) (gpu.Texture, error) {
	return a.device.NewTexture(width, height, gpu.UsageEncodeReference|gpu.UsageEncodeReconstructed)
}

func encoderFrameType(t gopplanner.FrameType) gpu.FrameType {
	switch t {
	case gopplanner.IDR:
		return gpu.FrameTypeIDR
	case gopplanner.I:
		return gpu.FrameTypeI
	case gopplanner.P:
		return gpu.FrameTypeP
	default:
		return gpu.FrameTypeB
	}
}
