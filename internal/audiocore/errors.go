package audiocore

import (
	"fmt"

	"github.com/tphakala/audioviz/internal/errors"
)

// ComponentAudioCore identifies errors raised by this package
const ComponentAudioCore = "audiocore"

// Sentinel errors. Failure sites wrap them with the errors builder, so test
// with errors.Is.
var (
	// ErrPermissionDenied is returned when microphone access has not been granted
	ErrPermissionDenied = errors.NewStd("microphone permission denied")

	// ErrDeviceUnavailable is returned when the capture device cannot be opened
	ErrDeviceUnavailable = errors.NewStd("audio device unavailable")

	// ErrDeviceDisconnected is returned by Read when the device stops delivering audio
	ErrDeviceDisconnected = errors.NewStd("audio device disconnected")

	// ErrInvalidSensitivity is returned for sensitivity values outside [0, 1]
	ErrInvalidSensitivity = errors.NewStd("sensitivity out of range")

	// ErrAlreadyListening is returned by Start while a session is active
	ErrAlreadyListening = errors.NewStd("already listening")

	// ErrNotListening is returned by Stop while idle
	ErrNotListening = errors.NewStd("not listening")

	// ErrMalformedWindow is returned when an analysis window has the wrong length
	ErrMalformedWindow = errors.NewStd("malformed analysis window")

	// ErrInvalidConfig is returned for unusable component configuration
	ErrInvalidConfig = errors.NewStd("invalid configuration")
)

// MalformedWindow wraps ErrMalformedWindow with the observed and expected lengths.
func MalformedWindow(component string, got, want int) error {
	return errors.New(ErrMalformedWindow).
		Component(component).
		Category(errors.CategoryAudioAnalysis).
		Context("window_length", got).
		Context("expected_length", want).
		Build()
}

// InvalidConfig wraps ErrInvalidConfig with a reason.
func InvalidConfig(component, reason string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidConfig, reason)).
		Component(component).
		Category(errors.CategoryValidation).
		Context("reason", reason).
		Build()
}

func invalidFormat(f AudioFormat, reason string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidConfig, reason)).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("sample_rate", f.SampleRate).
		Context("channels", f.Channels).
		Context("bit_depth", f.BitDepth).
		Build()
}
