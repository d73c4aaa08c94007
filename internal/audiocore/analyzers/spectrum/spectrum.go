// Package spectrum implements a log-frequency band analyzer on top of the
// gonum FFT.
package spectrum

import (
	"math"
	"math/bits"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers"
)

// Name is the analyzer mode reported in metrics.
const Name = "spectrum"

// Config fixes the window and band layout of an Analyzer.
type Config struct {
	SampleRate   int
	WindowSize   int
	Bands        int
	MinFrequency float64
	MaxFrequency float64
	Aggregation  analyzers.Aggregation
	Decay        float64
	Floor        float64
}

// DefaultConfig returns the default layout for sampleRate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:   sampleRate,
		WindowSize:   audiocore.DefaultWindowSize,
		Bands:        audiocore.DefaultBands,
		MinFrequency: audiocore.DefaultMinFrequency,
		MaxFrequency: audiocore.DefaultMaxFrequency,
		Aggregation:  analyzers.AggregationRMS,
		Decay:        audiocore.DefaultDecay,
		Floor:        audiocore.DefaultFloor,
	}
}

// Analyzer computes Hann-windowed FFT magnitudes grouped into log-spaced
// bands. Output for a given (window, state) pair is deterministic.
type Analyzer struct {
	cfg    Config
	norm   analyzers.Normalizer
	bands  []BandRange
	coeffs []float64 // Hann coefficients
	scale  float64   // 2 / sum(coeffs), single-sided amplitude scaling

	mu      sync.Mutex
	fft     *fourier.FFT
	seq     []float64
	spec    []complex128
	bandBuf []float64
}

// New validates cfg and builds an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	cfg.Aggregation, _ = analyzers.ParseAggregation(string(cfg.Aggregation))

	norm := analyzers.Normalizer{Decay: cfg.Decay, Floor: cfg.Floor}
	if err := norm.Validate(); err != nil {
		return nil, err
	}

	coeffs := make([]float64, cfg.WindowSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Hann(coeffs)

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return &Analyzer{
		cfg:    cfg,
		norm:   norm,
		bands:  logBands(cfg.Bands, cfg.WindowSize, cfg.SampleRate, cfg.MinFrequency, cfg.MaxFrequency),
		coeffs: coeffs,
		scale:  2 / sum,
		fft:    fourier.NewFFT(cfg.WindowSize),
		seq:    make([]float64, cfg.WindowSize),
		spec:   make([]complex128, cfg.WindowSize/2+1),
	}, nil
}

func validate(cfg Config) error {
	switch {
	case cfg.SampleRate <= 0:
		return audiocore.InvalidConfig(Name, "sample rate must be positive")
	case cfg.WindowSize <= 0 || bits.OnesCount(uint(cfg.WindowSize)) != 1:
		return audiocore.InvalidConfig(Name, "window size must be a positive power of two")
	case cfg.Bands <= 0 || cfg.Bands > cfg.WindowSize/2:
		return audiocore.InvalidConfig(Name, "bands must be between 1 and half the window size")
	case !(cfg.MinFrequency > 0):
		return audiocore.InvalidConfig(Name, "minimum frequency must be positive")
	case cfg.MaxFrequency <= cfg.MinFrequency:
		return audiocore.InvalidConfig(Name, "maximum frequency must exceed minimum frequency")
	case cfg.MinFrequency >= float64(cfg.SampleRate)/2:
		return audiocore.InvalidConfig(Name, "minimum frequency must be below Nyquist")
	}
	if _, err := analyzers.ParseAggregation(string(cfg.Aggregation)); err != nil {
		return err
	}
	return nil
}

// Analyze implements audiocore.Analyzer.
func (a *Analyzer) Analyze(w audiocore.AnalysisWindow, state audiocore.NormState) ([]float64, audiocore.NormState, error) {
	if len(w) != a.cfg.WindowSize {
		return nil, state, audiocore.MalformedWindow(Name, len(w), a.cfg.WindowSize)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range w {
		a.seq[i] = s * a.coeffs[i]
	}
	a.spec = a.fft.Coefficients(a.spec, a.seq)

	raw := make([]float64, len(a.bands))
	for i, b := range a.bands {
		a.bandBuf = a.bandBuf[:0]
		for k := b.Lo; k < b.Hi; k++ {
			re, im := real(a.spec[k]), imag(a.spec[k])
			a.bandBuf = append(a.bandBuf, math.Hypot(re, im)*a.scale)
		}
		raw[i] = a.cfg.Aggregation.Reduce(a.bandBuf)
	}

	out, next := a.norm.Apply(raw, state)
	return out, next, nil
}

// WindowSize implements audiocore.Analyzer.
func (a *Analyzer) WindowSize() int { return a.cfg.WindowSize }

// Bands implements audiocore.Analyzer.
func (a *Analyzer) Bands() int { return a.cfg.Bands }

// Name implements audiocore.Namer.
func (a *Analyzer) Name() string { return Name }

// BandRanges returns a copy of the bin range of every band.
func (a *Analyzer) BandRanges() []BandRange {
	out := make([]BandRange, len(a.bands))
	copy(out, a.bands)
	return out
}

// BinFrequency returns the centre frequency of FFT bin k.
func (a *Analyzer) BinFrequency(k int) float64 {
	return float64(k) * float64(a.cfg.SampleRate) / float64(a.cfg.WindowSize)
}
