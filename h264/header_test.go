/*
DESCRIPTION
  header_test.go provides testing for HeaderBuilder's SPS/PPS sequencing
  and alignment padding.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package h264

import "testing"

func TestHeaderBuilderWritesSPSOnlyOnce(t *testing.T) {
	b := NewHeaderBuilder(BuilderConfig{Width: 640, Height: 480, KeyFrameInterval: 30, MaxRefFrames: 2})

	first := b.Build(true, 1)
	if len(first) == 0 {
		t.Fatal("expected non-empty header on first build")
	}

	second := b.Build(false, 1)
	if len(second) == 0 {
		t.Fatal("expected a PPS-only header on a non-IDR build")
	}
	if len(second) >= len(first) {
		t.Errorf("expected non-IDR header shorter than the SPS+PPS header: got %d, first was %d", len(second), len(first))
	}
}

func TestHeaderBuilderForceNewSPS(t *testing.T) {
	b := NewHeaderBuilder(BuilderConfig{Width: 640, Height: 480, KeyFrameInterval: 30, MaxRefFrames: 2})
	b.Build(true, 1)
	b.ForceNewSPS()
	withForced := b.Build(false, 1)
	if len(withForced) == 0 {
		t.Fatal("expected a non-empty header after ForceNewSPS")
	}
}

func TestHeaderBuilderPadsToAlignment(t *testing.T) {
	b := NewHeaderBuilder(BuilderConfig{Width: 640, Height: 480, KeyFrameInterval: 30, MaxRefFrames: 2})
	const alignment = 16
	out := b.Build(true, alignment)
	if len(out)%alignment != 0 {
		t.Errorf("header length %d is not a multiple of alignment %d", len(out), alignment)
	}
}
