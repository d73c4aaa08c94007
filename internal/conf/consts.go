package conf

// Audio source kinds
const (
	SourceMalgo = "malgo"
	SourceWAV   = "wav"
	SourceTone  = "tone"
)

// Analyzer modes
const (
	ModeSpectrum  = "spectrum"
	ModeAmplitude = "amplitude"
)

// Band aggregation functions
const (
	AggregationRMS  = "rms"
	AggregationPeak = "peak"
)

const (
	minSampleRate = 8000
	maxSampleRate = 192000
	maxChannels   = 8
	minBands      = 1
	maxBands      = 512
	minWindowSize = 64
	maxWindowSize = 32768
)
