/*
DESCRIPTION
  config_test.go provides testing for Config.Validate.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package config

import "testing"

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func validConfig() Config {
	return Config{
		Width: 1280, Height: 720,
		KeyFrameInterval:       30,
		BFramesCount:           2,
		MaxReferenceFrameCount: 2,
		QPIntra:                22,
		QPInterP:               24,
		QPInterB:               26,
		HeaderAlignment:        1,
		Logger:                 &dumbLogger{},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
}

func TestValidateRejectsNonPositiveDimensions(t *testing.T) {
	c := validConfig()
	c.Width = 0
	if err := c.Validate(); err == nil {
		t.Error("expected an error for zero width")
	}
}

func TestValidateRejectsTooManyBFrames(t *testing.T) {
	c := validConfig()
	c.KeyFrameInterval = 4
	c.BFramesCount = 4 // B+1 (5) > K (4)
	if err := c.Validate(); err == nil {
		t.Error("expected an error when BFramesCount+1 exceeds KeyFrameInterval")
	}
}

func TestValidateAllowsInfiniteGOPWithBFrames(t *testing.T) {
	c := validConfig()
	c.KeyFrameInterval = 0 // infinite GOP places no ceiling on BFramesCount.
	c.BFramesCount = 100
	if err := c.Validate(); err != nil {
		t.Errorf("did not expect error for an infinite GOP: %v", err)
	}
}

func TestValidateRequiresReferenceFramesUnlessAllIntra(t *testing.T) {
	c := validConfig()
	c.KeyFrameInterval = 1 // every frame an IDR: no references ever needed.
	c.BFramesCount = 0
	c.MaxReferenceFrameCount = 0
	if err := c.Validate(); err != nil {
		t.Errorf("did not expect error for an all-IDR config with zero references: %v", err)
	}

	c.KeyFrameInterval = 30
	if err := c.Validate(); err == nil {
		t.Error("expected an error requiring at least one reference frame for a non-all-IDR config")
	}
}

func TestValidateRequiresTwoReferenceFramesForBFrames(t *testing.T) {
	c := validConfig()
	c.BFramesCount = 1
	c.MaxReferenceFrameCount = 1
	if err := c.Validate(); err == nil {
		t.Error("expected an error: a B frame needs both a past and a future reference, so one reference frame is not enough")
	}

	c.MaxReferenceFrameCount = 2
	if err := c.Validate(); err != nil {
		t.Errorf("did not expect error with two reference frames available: %v", err)
	}
}

func TestValidateRejectsOutOfRangeQP(t *testing.T) {
	c := validConfig()
	c.QPIntra = 52
	if err := c.Validate(); err == nil {
		t.Error("expected an error for a QP value above 51")
	}
}

func TestValidateRejectsMissingLogger(t *testing.T) {
	c := validConfig()
	c.Logger = nil
	if err := c.Validate(); err == nil {
		t.Error("expected an error for a nil Logger")
	}
}

func TestValidateRejectsZeroHeaderAlignment(t *testing.T) {
	c := validConfig()
	c.HeaderAlignment = 0
	if err := c.Validate(); err == nil {
		t.Error("expected an error for a zero HeaderAlignment")
	}
}
