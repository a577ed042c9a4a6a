/*
DESCRIPTION
  errors.go defines the error types an Encoder can return, distinguishing
  caller mistakes from device failures so callers can decide whether a
  retry, a reconfiguration, or a hard stop is appropriate.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hwenc

import "github.com/pkg/errors"

// ConfigurationError wraps a failure validating an Encoder's configuration
// or checking it against the device's limits, both done in New.
type ConfigurationError struct {
	cause error
}

func (e *ConfigurationError) Error() string { return "hwenc: configuration: " + e.cause.Error() }
func (e *ConfigurationError) Unwrap() error { return e.cause }

func newConfigurationError(cause error) error { return &ConfigurationError{cause: errors.WithStack(cause)} }

// DeviceError wraps a failure reported by the underlying GPU device: a
// resource allocation, submission, or wait that failed.
type DeviceError struct {
	cause error
}

func (e *DeviceError) Error() string { return "hwenc: device: " + e.cause.Error() }
func (e *DeviceError) Unwrap() error { return e.cause }

func newDeviceError(cause error) error { return &DeviceError{cause: errors.WithStack(cause)} }

// EncodingError wraps an error flag reported by the device's resolved
// metadata for a specific frame: the hardware accepted the submission but
// could not produce a valid coded picture from it.
type EncodingError struct {
	cause error
}

func (e *EncodingError) Error() string { return "hwenc: encoding: " + e.cause.Error() }
func (e *EncodingError) Unwrap() error { return e.cause }

func newEncodingError(cause error) error { return &EncodingError{cause: errors.WithStack(cause)} }

// InvalidReferenceError wraps a failure resolving a planned frame's
// reference list against the current decoded picture buffer contents.
type InvalidReferenceError struct {
	cause error
}

func (e *InvalidReferenceError) Error() string { return "hwenc: invalid reference: " + e.cause.Error() }
func (e *InvalidReferenceError) Unwrap() error  { return e.cause }

func newInvalidReferenceError(cause error) error {
	return &InvalidReferenceError{cause: errors.WithStack(cause)}
}

// ProtocolMisuseError reports a call made out of the sequence
// PushFrame/StartEncodingPushedFrame/WaitForEncodedFrame requires, such as
// a second PushFrame before the first has started encoding.
type ProtocolMisuseError struct {
	cause error
}

func (e *ProtocolMisuseError) Error() string { return "hwenc: protocol misuse: " + e.cause.Error() }
func (e *ProtocolMisuseError) Unwrap() error  { return e.cause }

func newProtocolMisuseError(cause error) error {
	return &ProtocolMisuseError{cause: errors.WithStack(cause)}
}
