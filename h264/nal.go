/*
DESCRIPTION
  nal.go writes SPS and PPS RBSPs and wraps them into framed NAL units:
  start code, one-byte NAL header, and emulation-prevented payload.

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

import "github.com/ausocean/hwenc/bits"

// NAL unit types used by this encoder.
const (
	NALTypeSPS = 7
	NALTypePPS = 8
)

// NAL reference indicator for SPS/PPS: both are referenced by every
// subsequent picture, so nal_ref_idc is the maximum value, 3.
const nalRefIdcHigh = 3

var startCode = [4]byte{0x00, 0x00, 0x00, 0x01}

// writeSPSRBSP writes the SPS syntax elements into an RBSP writer.
func writeSPSRBSP(w *bits.Writer, s SPS) {
	w.PutBits(8, uint32(s.ProfileIDC))
	w.PutBits(1, 0) // constraint_set0_flag
	w.PutBits(1, 0) // constraint_set1_flag
	w.PutBits(1, 0) // constraint_set2_flag
	w.PutBits(1, b2u(s.ConstraintSet3))
	w.PutBits(1, 0) // constraint_set4_flag
	w.PutBits(1, 0) // constraint_set5_flag
	w.PutBits(2, 0) // reserved_zero_2bits
	w.PutBits(8, uint32(s.LevelIDC))
	w.ExpGolombUE(s.SeqParameterSetID)

	if s.ProfileIDC == ProfileHigh || s.ProfileIDC == ProfileHigh10 {
		w.ExpGolombUE(1) // chroma_format_idc, always 4:2:0
		bitDepthLumaMinus8 := uint32(0)
		bitDepthChromaMinus8 := uint32(0)
		if s.ProfileIDC == ProfileHigh10 {
			bitDepthLumaMinus8, bitDepthChromaMinus8 = 2, 2
		}
		w.ExpGolombUE(bitDepthLumaMinus8)
		w.ExpGolombUE(bitDepthChromaMinus8)
		w.PutBits(1, 0) // qpprime_y_zero_transform_bypass_flag
		w.PutBits(1, 0) // seq_scaling_matrix_present_flag
	}

	w.ExpGolombUE(s.Log2MaxFrameNumMinus4)
	w.ExpGolombUE(s.PicOrderCntType)
	if s.PicOrderCntType == 0 {
		w.ExpGolombUE(s.Log2MaxPicOrderCntLsbMinus4)
	}
	w.ExpGolombUE(s.MaxNumRefFrames)
	w.PutBits(1, b2u(s.GapsInFrameNumAllowed))
	w.ExpGolombUE(s.PicWidthInMbsMinus1)
	w.ExpGolombUE(s.PicHeightInMapUnitsMinus1)
	w.PutBits(1, 1) // frame_mbs_only_flag; no interlace support
	w.PutBits(1, b2u(s.Direct8x8Inference))
	w.PutBits(1, b2u(s.FrameCropping))
	if s.FrameCropping {
		w.ExpGolombUE(0) // frame_crop_left_offset
		w.ExpGolombUE(s.CropRight)
		w.ExpGolombUE(0) // frame_crop_top_offset
		w.ExpGolombUE(s.CropBottom)
	}
	w.PutBits(1, 0) // vui_parameters_present_flag
	w.RBSPTrailing()
}

// writePPSRBSP writes the PPS syntax elements into an RBSP writer.
func writePPSRBSP(w *bits.Writer, p PPS) {
	w.ExpGolombUE(p.PicParameterSetID)
	w.ExpGolombUE(p.SeqParameterSetID)
	w.PutBits(1, b2u(p.EntropyCodingMode))
	w.PutBits(1, b2u(p.BottomFieldPicOrderInFramePresent))
	w.ExpGolombUE(0) // num_slice_groups_minus1; full-frame layout only
	w.ExpGolombUE(p.NumRefIdxL0DefaultActiveMinus1)
	w.ExpGolombUE(p.NumRefIdxL1DefaultActiveMinus1)
	w.PutBits(1, 0) // weighted_pred_flag
	w.PutBits(2, 0) // weighted_bipred_idc
	w.ExpGolombSE(0) // pic_init_qp_minus26
	w.ExpGolombSE(0) // pic_init_qs_minus26
	w.ExpGolombSE(0) // chroma_qp_index_offset
	w.PutBits(1, 1)  // deblocking_filter_control_present_flag
	w.PutBits(1, b2u(p.ConstrainedIntraPred))
	w.PutBits(1, 0) // redundant_pic_cnt_present_flag

	if p.HighProfile {
		w.PutBits(1, b2u(p.Transform8x8Mode))
		w.PutBits(1, 0)  // pic_scaling_matrix_present_flag
		w.ExpGolombSE(0) // second_chroma_qp_index_offset
	}
	w.RBSPTrailing()
}

// wrapNAL frames an already-built, byte-aligned RBSP into a complete NAL
// unit: start code, one-byte header, then the RBSP copied through the
// emulation-prevention scanner, finished with the trailing-zero fixup.
func wrapNAL(rbsp []byte, nalRefIdc, nalType uint32) []byte {
	w := bits.NewWriter()
	w.SetEmulationPrevention(false)
	for _, b := range startCode {
		w.PutBits(8, uint32(b))
	}
	w.PutBits(1, 0) // forbidden_zero_bit
	w.PutBits(2, nalRefIdc)
	w.PutBits(5, nalType)

	w.SetEmulationPrevention(true)
	w.AppendBytes(rbsp)
	w.SetEmulationPrevention(false)

	if last, ok := w.LastByte(); ok && last == 0x00 {
		w.PutBits(8, 0x03)
	}
	return w.Bytes()
}

// SPSToNAL renders s as a complete, framed NAL unit.
func SPSToNAL(s SPS) []byte {
	rbsp := bits.NewWriter()
	writeSPSRBSP(rbsp, s)
	return wrapNAL(rbsp.Bytes(), nalRefIdcHigh, NALTypeSPS)
}

// PPSToNAL renders p as a complete, framed NAL unit.
func PPSToNAL(p PPS) []byte {
	rbsp := bits.NewWriter()
	writePPSRBSP(rbsp, p)
	return wrapNAL(rbsp.Bytes(), nalRefIdcHigh, NALTypePPS)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
