// Package analyzers holds helpers shared by the spectrum and amplitude analyzers.
package analyzers

import (
	"math"

	"github.com/tphakala/audioviz/internal/audiocore"
)

// Aggregation reduces the magnitudes of one band to a single value.
type Aggregation string

const (
	AggregationRMS  Aggregation = "rms"
	AggregationPeak Aggregation = "peak"
)

// ParseAggregation maps a configuration string to an Aggregation.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(s) {
	case AggregationRMS, "":
		return AggregationRMS, nil
	case AggregationPeak:
		return AggregationPeak, nil
	default:
		return "", audiocore.InvalidConfig("analyzer", "unknown aggregation "+s)
	}
}

// Reduce applies the aggregation to values. An empty slice reduces to 0.
func (a Aggregation) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if a == AggregationPeak {
		var peak float64
		for _, v := range values {
			peak = math.Max(peak, v)
		}
		return peak
	}
	var sum float64
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Normalizer scales raw band values against a decaying running maximum:
// peak' = max(max(raw), peak*Decay, Floor), out = clamp(raw/peak', 0, 1).
type Normalizer struct {
	Decay float64
	Floor float64
}

// Validate checks decay in (0, 1] and a positive floor.
func (n Normalizer) Validate() error {
	if !(n.Decay > 0 && n.Decay <= 1) {
		return audiocore.InvalidConfig("analyzer", "decay must be in (0, 1]")
	}
	if !(n.Floor > 0) {
		return audiocore.InvalidConfig("analyzer", "floor must be positive")
	}
	return nil
}

// Apply normalizes raw in place and returns the next state. Non-finite raw
// values are treated as silence.
func (n Normalizer) Apply(raw []float64, state audiocore.NormState) ([]float64, audiocore.NormState) {
	var maxBand float64
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			raw[i] = 0
			continue
		}
		maxBand = math.Max(maxBand, v)
	}

	peak := math.Max(maxBand, math.Max(state.Peak*n.Decay, n.Floor))
	for i, v := range raw {
		raw[i] = math.Min(v/peak, 1)
	}

	return raw, audiocore.NormState{Peak: peak, Version: state.Version + 1}
}
