/*
DESCRIPTION
  sps.go defines the Sequence Parameter Set fields this encoder emits, and
  the derivation of its Exp-Golomb log2 counter fields from the GOP
  configuration.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 builds SPS and PPS NAL units for a constant-QP, full-frame,
// Main-profile H.264 elementary stream. Unlike codec/h264/h264dec, which
// parses these structures from a bitstream, this package only writes them.
package h264

import "math"

// Profile IDCs. Only Main is emitted by HeaderBuilder.Build, but High and
// High10 are accepted by the writer so a caller with a device that
// negotiated one of those profiles can still use it.
const (
	ProfileMain    = 77
	ProfileHigh    = 100
	ProfileHigh10  = 110
	LevelIDC42     = 42
	headerAlignDef = 1
)

// KEffectiveInfiniteGOP is the sentinel GOP length used to size the
// log2_max_pic_order_cnt_lsb_minus4 field when keyFrameInterval is 0
// (infinite GOP). It bounds the POC counter to a practical range rather
// than to the true, unbounded sequence length; an encoder intended to run
// indefinitely must periodically force a new SPS instead of relying on
// this bound alone.
const KEffectiveInfiniteGOP = 32768

// SPS holds the fields of a Sequence Parameter Set NAL unit that this
// encoder controls. VUI, scaling lists, and interlaced coding fields are
// not represented.
type SPS struct {
	ProfileIDC                  uint8
	ConstraintSet3              bool
	LevelIDC                    uint8
	SeqParameterSetID           uint32
	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	Log2MaxPicOrderCntLsbMinus4 uint32
	MaxNumRefFrames             uint32
	GapsInFrameNumAllowed       bool
	PicWidthInMbsMinus1         uint32
	PicHeightInMapUnitsMinus1   uint32
	Direct8x8Inference          bool
	FrameCropping               bool
	CropRight                   uint32
	CropBottom                  uint32
}

// NewSPS derives an SPS for a picture of the given dimensions and GOP
// configuration. keyFrameInterval of 0 means infinite GOP.
func NewSPS(width, height int, keyFrameInterval, maxRefFrames uint32, id uint32, direct8x8Inference bool) SPS {
	kEffective := keyFrameInterval
	if kEffective == 0 {
		kEffective = KEffectiveInfiniteGOP
	}

	log2Gop := ceilLog2(maxUint32(1, kEffective))
	log2FrameNumMinus4 := uint32(0)
	if log2Gop > 4 {
		log2FrameNumMinus4 = log2Gop - 4
	}

	log2PocLsbMinus4 := uint32(0)
	if v := ceilLog2(2 * kEffective); v > 4 {
		log2PocLsbMinus4 = v - 4
	}
	if log2PocLsbMinus4 > 12 {
		log2PocLsbMinus4 = 12
	}

	mbWidth := uint32((width + 15) / 16)
	mbHeight := uint32((height + 15) / 16)
	cropRight := (16*mbWidth - uint32(width)) / 2
	cropBottom := (16*mbHeight - uint32(height)) / 2
	cropping := cropRight != 0 || cropBottom != 0

	return SPS{
		ProfileIDC:                  ProfileMain,
		LevelIDC:                    LevelIDC42,
		SeqParameterSetID:           id,
		Log2MaxFrameNumMinus4:       log2FrameNumMinus4,
		PicOrderCntType:             0,
		Log2MaxPicOrderCntLsbMinus4: log2PocLsbMinus4,
		MaxNumRefFrames:             maxRefFrames,
		PicWidthInMbsMinus1:         mbWidth - 1,
		PicHeightInMapUnitsMinus1:   mbHeight - 1,
		Direct8x8Inference:          direct8x8Inference,
		FrameCropping:               cropping,
		CropRight:                   cropRight,
		CropBottom:                  cropBottom,
	}
}

func ceilLog2(v uint32) uint32 {
	if v <= 1 {
		return 0
	}
	return uint32(math.Ceil(math.Log2(float64(v))))
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
