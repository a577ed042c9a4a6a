/*
DESCRIPTION
  header.go provides HeaderBuilder, which produces the SPS/PPS prefix
  bytes prepended to hardware-produced slice data for each coded frame.

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

// BuilderConfig describes the fixed picture parameters a HeaderBuilder
// derives SPS/PPS from. Width and Height are in pixels; KeyFrameInterval
// feeds the Exp-Golomb log2 field derivation in NewSPS, and MaxRefFrames
// is written as max_num_ref_frames.
type BuilderConfig struct {
	Width, Height        int
	KeyFrameInterval     uint32
	MaxRefFrames         uint32
	Direct8x8Inference   bool
	EntropyCodingMode    bool // true selects CABAC, false CAVLC.
	ConstrainedIntraPred bool
}

// HeaderBuilder produces SPS and PPS NAL unit bytes for the current
// sequence and picture, tracking the active SPS id across sequence
// changes. Most streams never trigger one, but the id rule is still
// observed for the single, first-frame SPS write.
type HeaderBuilder struct {
	cfg         BuilderConfig
	activeSPSID uint32
	activePPSID uint32
	wroteSPS    bool
}

// NewHeaderBuilder returns a HeaderBuilder for cfg. No bytes are produced
// until BuildSPS/BuildPPS/Build are called.
func NewHeaderBuilder(cfg BuilderConfig) *HeaderBuilder {
	return &HeaderBuilder{cfg: cfg}
}

// ForceNewSPS increments the active SPS id, as required before writing a
// second SPS. This encoder never changes resolution mid-stream, but the
// id rule still applies if a caller forces a rewrite for some other
// reason.
func (b *HeaderBuilder) ForceNewSPS() {
	b.activeSPSID++
	b.wroteSPS = false
}

// BuildSPS returns a fresh SPS NAL unit for the builder's configuration,
// right-padded with zero bytes to a multiple of alignment.
func (b *HeaderBuilder) BuildSPS(alignment int) []byte {
	sps := NewSPS(b.cfg.Width, b.cfg.Height, b.cfg.KeyFrameInterval, b.cfg.MaxRefFrames, b.activeSPSID, b.cfg.Direct8x8Inference)
	b.wroteSPS = true
	return padTo(SPSToNAL(sps), alignment)
}

// BuildPPS returns a fresh PPS NAL unit referencing the active SPS,
// right-padded with zero bytes to a multiple of alignment.
func (b *HeaderBuilder) BuildPPS(alignment int) []byte {
	pps := NewPPS(b.activePPSID, b.activeSPSID, b.cfg.EntropyCodingMode, b.cfg.ConstrainedIntraPred)
	return padTo(PPSToNAL(pps), alignment)
}

// Build returns the concatenation of an SPS (only when needSPS is true,
// i.e. the first frame or a forced rewrite) and a PPS, right-padded with
// zero bytes to headerAlignment so hardware-produced slice data begins at
// an aligned offset.
func (b *HeaderBuilder) Build(needSPS bool, headerAlignment int) []byte {
	var out []byte
	if needSPS || !b.wroteSPS {
		sps := NewSPS(b.cfg.Width, b.cfg.Height, b.cfg.KeyFrameInterval, b.cfg.MaxRefFrames, b.activeSPSID, b.cfg.Direct8x8Inference)
		out = append(out, SPSToNAL(sps)...)
		b.wroteSPS = true
	}
	pps := NewPPS(b.activePPSID, b.activeSPSID, b.cfg.EntropyCodingMode, b.cfg.ConstrainedIntraPred)
	out = append(out, PPSToNAL(pps)...)
	return padTo(out, headerAlignment)
}

func padTo(b []byte, alignment int) []byte {
	if alignment <= 1 {
		return b
	}
	if rem := len(b) % alignment; rem != 0 {
		b = append(b, make([]byte, alignment-rem)...)
	}
	return b
}
