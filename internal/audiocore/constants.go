package audiocore

import "time"

// Capture defaults. 44.1 kHz mono PCM16 is the format every platform
// microphone path supports.
const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 1
	DefaultBitDepth     = 16
	DefaultBufferFrames = 512
	DefaultReadTimeout  = 2 * time.Second

	EncodingPCM16LE = "pcm_s16le"
)

// Analysis defaults
const (
	DefaultWindowSize   = 1024
	DefaultBands        = 32
	DefaultOverlap      = 0.5
	DefaultMinFrequency = 50.0
	DefaultMaxFrequency = 16000.0
	DefaultDecay        = 0.99
	DefaultFloor        = 0.01
)

// Sensitivity and dispatch defaults
const (
	DefaultSensitivity     = 0.5
	DefaultSensitivityGain = 3.0
	DefaultMaxRate         = 30.0
)

// Int16Scale maps int16 samples to [-1, 1).
const Int16Scale = 32768.0

// DefaultFormat returns the default capture format.
func DefaultFormat() AudioFormat {
	return AudioFormat{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
		Encoding:   EncodingPCM16LE,
	}
}
