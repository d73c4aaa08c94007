package audiocore

import (
	"context"
	"time"
)

// AudioFormat describes the PCM layout of captured audio.
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g., 44100)
	Channels   int    // Number of interleaved channels
	BitDepth   int    // Bits per sample, always 16 after conversion
	Encoding   string // Encoding name, EncodingPCM16LE
}

// Validate checks that the format can be buffered and analyzed.
func (f AudioFormat) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return invalidFormat(f, "sample rate must be positive")
	case f.Channels <= 0:
		return invalidFormat(f, "channel count must be positive")
	case f.BitDepth != 0 && f.BitDepth != DefaultBitDepth:
		return invalidFormat(f, "only 16-bit samples are supported")
	}
	return nil
}

// BytesPerFrame returns the size of one interleaved sample frame.
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * DefaultBitDepth / 8
}

// AudioFrame is a block of interleaved signed 16-bit PCM samples. Frames are
// immutable once captured.
type AudioFrame struct {
	Samples   []int16
	Format    AudioFormat
	Timestamp time.Time
}

// Frames returns the number of sample frames, samples per channel.
func (f AudioFrame) Frames() int {
	if f.Format.Channels <= 0 {
		return len(f.Samples)
	}
	return len(f.Samples) / f.Format.Channels
}

// Duration returns the playback length of the frame.
func (f AudioFrame) Duration() time.Duration {
	if f.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Frames()) * time.Second / time.Duration(f.Format.SampleRate)
}

// AppendMono downmixes the frame by averaging channels and appends the result to dst.
func (f AudioFrame) AppendMono(dst []int16) []int16 {
	ch := f.Format.Channels
	if ch <= 1 {
		return append(dst, f.Samples...)
	}
	n := len(f.Samples) / ch
	for i := range n {
		var sum int32
		for c := range ch {
			sum += int32(f.Samples[i*ch+c])
		}
		dst = append(dst, int16(sum/int32(ch)))
	}
	return dst
}

// AnalysisWindow holds mono samples scaled to [-1, 1). Its length is a power
// of two and it is owned by one analyzer call at a time.
type AnalysisWindow []float64

// VisualizationFrame is one normalized output of the pipeline. Every value is
// in [0, 1] and the length is fixed for the lifetime of a session.
type VisualizationFrame struct {
	Values    []float64
	Sequence  uint64
	Timestamp time.Time
	SessionID string
}

// Clone returns a copy whose Values do not alias the receiver's.
func (v VisualizationFrame) Clone() VisualizationFrame {
	c := v
	c.Values = make([]float64, len(v.Values))
	copy(c.Values, v.Values)
	return c
}

// NormState carries the running maximum used for normalization between
// analysis cycles. Version increases by one per Analyze call.
type NormState struct {
	Peak    float64
	Version uint64
}

// AudioSource produces PCM frames from a device, file or generator.
type AudioSource interface {
	// ID returns a stable identifier used in logs and metrics
	ID() string

	// Open acquires the underlying device. It fails with ErrDeviceUnavailable
	// or ErrPermissionDenied. Open after Close reacquires the same device.
	Open(ctx context.Context) error

	// Read blocks until a frame is available. It returns ErrDeviceDisconnected
	// when the device stops delivering audio, io.EOF at the end of finite
	// input and ctx.Err() when ctx is done.
	Read(ctx context.Context) (AudioFrame, error)

	// Close releases the device. It is idempotent.
	Close() error

	// Format returns the format of frames returned by Read
	Format() AudioFormat
}

// OnDemandSource is implemented by sources that produce audio when read
// rather than as it happens, such as files. Reads from such a source are held
// back until the frame buffer has room, so none of its samples are dropped.
type OnDemandSource interface {
	OnDemand() bool
}

// Analyzer converts an analysis window into N normalized magnitudes.
// Identical inputs produce identical outputs.
type Analyzer interface {
	// Analyze returns exactly Bands() values in [0, 1] and the next
	// normalization state. A window whose length differs from WindowSize()
	// fails with ErrMalformedWindow.
	Analyze(window AnalysisWindow, state NormState) ([]float64, NormState, error)

	// WindowSize returns the required window length
	WindowSize() int

	// Bands returns the output length
	Bands() int
}

// Namer is implemented by analyzers that report a mode name for metrics.
type Namer interface {
	Name() string
}
