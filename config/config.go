/*
DESCRIPTION
  config.go defines the fixed configuration an Encoder is constructed
  with, and validates it against the invariants the GOP planner and
  reference manager depend on.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the immutable configuration of a hardware H.264
// encoder instance: picture dimensions, GOP structure, and rate control.
package config

import (
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Config is passed once to hwenc.New and is immutable for the lifetime
// of the Encoder built from it.
type Config struct {
	// Width and Height are the luma plane dimensions in pixels of every
	// frame pushed to the encoder.
	Width, Height int

	// KeyFrameInterval is the number of pictures, in display order,
	// between successive IDR frames. 0 means an infinite GOP: a single
	// IDR at the start of the sequence and no others thereafter.
	KeyFrameInterval uint32

	// BFramesCount is the number of B frames placed between successive
	// reference frames (IDR or P). 0 disables B frames entirely (a
	// plain IDR/P-only GOP).
	BFramesCount uint32

	// MaxReferenceFrameCount bounds the decoded picture buffer: the
	// number of reconstructed pictures retained as potential
	// references. Required to be at least 1 whenever the GOP produces
	// any non-intra frame.
	MaxReferenceFrameCount uint32

	// QPIntra, QPInterP and QPInterB set constant quantization
	// parameters for the encoder's constant-QP rate control mode, one
	// per frame type.
	QPIntra, QPInterP, QPInterB int

	// HeaderAlignment is the byte alignment the device requires of the
	// start of hardware-produced slice data; HeaderBuilder pads SPS/PPS
	// NAL output to this boundary.
	HeaderAlignment int

	// Logger receives diagnostic output from the Encoder. Required.
	Logger logging.Logger
}

// Validate reports an error if c violates an invariant the GOP planner or
// reference manager relies on. It does not mutate c or apply defaults;
// callers must supply a complete configuration.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("config: width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.KeyFrameInterval != 0 && c.BFramesCount+1 > c.KeyFrameInterval {
		return errors.Errorf("config: BFramesCount+1 (%d) must not exceed KeyFrameInterval (%d)", c.BFramesCount+1, c.KeyFrameInterval)
	}
	if (c.BFramesCount > 0 || c.KeyFrameInterval != 1) && c.MaxReferenceFrameCount < 1 {
		return errors.New("config: MaxReferenceFrameCount must be at least 1 unless every frame is an IDR")
	}
	if c.BFramesCount > 0 && c.MaxReferenceFrameCount < 2 {
		return errors.New("config: MaxReferenceFrameCount must be at least 2 when BFramesCount is greater than 0, since a B frame references both a past and a future frame")
	}
	if c.QPIntra < 0 || c.QPIntra > 51 || c.QPInterP < 0 || c.QPInterP > 51 || c.QPInterB < 0 || c.QPInterB > 51 {
		return errors.New("config: QP values must be in [0, 51]")
	}
	if c.HeaderAlignment < 1 {
		return errors.New("config: HeaderAlignment must be at least 1")
	}
	if c.Logger == nil {
		return errors.New("config: Logger must not be nil")
	}
	return nil
}
