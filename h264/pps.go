/*
DESCRIPTION
  pps.go defines the Picture Parameter Set fields this encoder emits.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

// PPS holds the fields of a Picture Parameter Set NAL unit that this
// encoder controls.
type PPS struct {
	PicParameterSetID                 uint32
	SeqParameterSetID                 uint32
	EntropyCodingMode                 bool
	BottomFieldPicOrderInFramePresent bool
	NumRefIdxL0DefaultActiveMinus1    uint32
	NumRefIdxL1DefaultActiveMinus1    uint32
	ConstrainedIntraPred              bool
	Transform8x8Mode                  bool
	HighProfile                       bool
}

// NewPPS returns a PPS referencing the given active SPS id.
func NewPPS(ppsID, spsID uint32, entropyCodingMode, constrainedIntraPred bool) PPS {
	return PPS{
		PicParameterSetID:              ppsID,
		SeqParameterSetID:              spsID,
		EntropyCodingMode:              entropyCodingMode,
		NumRefIdxL0DefaultActiveMinus1: 0,
		NumRefIdxL1DefaultActiveMinus1: 0,
		ConstrainedIntraPred:           constrainedIntraPred,
	}
}
