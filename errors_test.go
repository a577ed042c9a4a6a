/*
DESCRIPTION
  errors_test.go provides testing for the wrapped error types in errors.go:
  that each reports a distinguishable message and unwraps to its cause.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/

package hwenc

import (
	"errors"
	"testing"
)

func TestConfigurationErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("width must be positive")
	err := newConfigurationError(cause)

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatal("expected errors.As to find a *ConfigurationError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the wrapped error to unwrap to its cause")
	}
}

func TestProtocolMisuseErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("StartEncodingPushedFrame called before WaitForEncodedFrame")
	err := newProtocolMisuseError(cause)

	var pe *ProtocolMisuseError
	if !errors.As(err, &pe) {
		t.Fatal("expected errors.As to find a *ProtocolMisuseError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the wrapped error to unwrap to its cause")
	}
}

func TestErrorTypesAreDistinguishable(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		name string
		err  error
	}{
		{"configuration", newConfigurationError(cause)},
		{"device", newDeviceError(cause)},
		{"encoding", newEncodingError(cause)},
		{"invalidReference", newInvalidReferenceError(cause)},
		{"protocolMisuse", newProtocolMisuseError(cause)},
	}
	seen := map[string]bool{}
	for _, c := range cases {
		if seen[c.err.Error()] {
			t.Errorf("%s: message %q collides with another error type", c.name, c.err.Error())
		}
		seen[c.err.Error()] = true
	}
}
