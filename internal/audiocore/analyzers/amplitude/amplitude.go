// Package amplitude implements a time-domain analyzer: the window is split
// into equal segments and each output value is the mean absolute level of
// one segment.
package amplitude

import (
	"math"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers"
)

// Name is the analyzer mode reported in metrics.
const Name = "amplitude"

// Config fixes the window and segment count of an Analyzer.
type Config struct {
	WindowSize int
	Bands      int
	Decay      float64
	Floor      float64
}

// Analyzer produces per-segment average amplitudes normalized against a
// running maximum.
type Analyzer struct {
	cfg  Config
	norm analyzers.Normalizer
}

// New validates cfg and builds an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.WindowSize <= 0 {
		return nil, audiocore.InvalidConfig(Name, "window size must be positive")
	}
	if cfg.Bands <= 0 || cfg.Bands > cfg.WindowSize {
		return nil, audiocore.InvalidConfig(Name, "bands must be between 1 and the window size")
	}
	norm := analyzers.Normalizer{Decay: cfg.Decay, Floor: cfg.Floor}
	if err := norm.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, norm: norm}, nil
}

// Analyze implements audiocore.Analyzer.
func (a *Analyzer) Analyze(w audiocore.AnalysisWindow, state audiocore.NormState) ([]float64, audiocore.NormState, error) {
	if len(w) != a.cfg.WindowSize {
		return nil, state, audiocore.MalformedWindow(Name, len(w), a.cfg.WindowSize)
	}

	n := a.cfg.Bands
	raw := make([]float64, n)
	for i := range n {
		lo := i * len(w) / n
		hi := (i + 1) * len(w) / n
		var sum float64
		for _, s := range w[lo:hi] {
			sum += math.Abs(s)
		}
		raw[i] = sum / float64(hi-lo)
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
