/*
DESCRIPTION
  sps_test.go provides testing for SPS derivation and NAL framing in sps.go
  and nal.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package h264

import (
	"bytes"
	"testing"
)

func TestNewSPSCropping(t *testing.T) {
	// 854x480 is not a multiple of the 16x16 macroblock grid in width,
	// so cropping must be signalled.
	s := NewSPS(854, 480, 30, 2, 0, true)
	if !s.FrameCropping {
		t.Fatal("expected FrameCropping for 854x480")
	}
	wantMBWidth := uint32(54) // ceil(854/16)
	if s.PicWidthInMbsMinus1 != wantMBWidth-1 {
		t.Errorf("got PicWidthInMbsMinus1 %d, want %d", s.PicWidthInMbsMinus1, wantMBWidth-1)
	}
	// 54*16 = 864, 10 extra luma pixels, cropped in chroma sample units (/2).
	if s.CropRight != 5 {
		t.Errorf("got CropRight %d, want 5", s.CropRight)
	}
	if s.CropBottom != 0 {
		t.Errorf("got CropBottom %d, want 0 (480 is a multiple of 16)", s.CropBottom)
	}
}

func TestNewSPSNoCroppingOnAlignedDimensions(t *testing.T) {
	s := NewSPS(1280, 720, 30, 2, 0, true)
	if s.FrameCropping {
		t.Fatal("did not expect FrameCropping for 1280x720")
	}
}

func TestNewSPSInfiniteGOPUsesSentinel(t *testing.T) {
	finite := NewSPS(640, 480, 30, 2, 0, true)
	infinite := NewSPS(640, 480, 0, 2, 0, true)
	if infinite.Log2MaxPicOrderCntLsbMinus4 <= finite.Log2MaxPicOrderCntLsbMinus4 {
		t.Errorf("expected infinite GOP to derive a larger POC LSB field: finite=%d infinite=%d",
			finite.Log2MaxPicOrderCntLsbMinus4, infinite.Log2MaxPicOrderCntLsbMinus4)
	}
}

func TestSPSToNALStartsWithStartCodeAndHasNoFalseStartCode(t *testing.T) {
	s := NewSPS(854, 480, 30, 2, 0, true)
	nal := SPSToNAL(s)
	want := []byte{0x00, 0x00, 0x00, 0x01}
	if !bytes.HasPrefix(nal, want) {
		t.Fatalf("SPS NAL does not start with a start code: %x", nal[:4])
	}
	assertNoFalseStartCode(t, nal[4:])
}

func TestPPSToNALStartsWithStartCodeAndHasNoFalseStartCode(t *testing.T) {
	p := NewPPS(0, 0, true, false)
	nal := PPSToNAL(p)
	want := []byte{0x00, 0x00, 0x00, 0x01}
	if !bytes.HasPrefix(nal, want) {
		t.Fatalf("PPS NAL does not start with a start code: %x", nal[:4])
	}
	assertNoFalseStartCode(t, nal[4:])
}

// assertNoFalseStartCode fails t if payload contains 0x00 0x00 0x0{0,1,2,3},
// which would be misread as a start code or emulation-prevention failure by
// a downstream parser.
func assertNoFalseStartCode(t *testing.T, payload []byte) {
	t.Helper()
	for i := 0; i+2 < len(payload); i++ {
		if payload[i] == 0x00 && payload[i+1] == 0x00 && payload[i+2] <= 0x03 {
			t.Fatalf("false start code at offset %d: %x", i, payload[i:i+3])
		}
	}
}
