// Package processors provides post-analysis transforms for visualization frames
package processors

import (
	"sync/atomic"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

// SensitivityController scales normalized magnitudes by a user-controlled
// sensitivity s in [0, 1]: out = clamp(in * (1 + k*s), 0, 1).
// Value is a single atomic load, so readers never block writers.
type SensitivityController struct {
	value atomic.Value // stores float64
	gain  float64      // k
}

// NewSensitivityController creates a controller with initial value s and gain k.
func NewSensitivityController(initial, gain float64) (*SensitivityController, error) {
	if gain < 0 {
		return nil, audiocore.InvalidConfig("sensitivity", "gain must not be negative")
	}
	if err := validateSensitivity(initial); err != nil {
		return nil, err
	}

	sc := &SensitivityController{gain: gain}
	sc.value.Store(initial)
	return sc, nil
}

// Set replaces the sensitivity. Values outside [0, 1] fail with
// ErrInvalidSensitivity and leave the current value unchanged.
func (sc *SensitivityController) Set(v float64) error {
	if err := validateSensitivity(v); err != nil {
		log.Warn("rejected sensitivity value", logger.Float64("value", v))
		return err
	}
	sc.value.Store(v)
	log.Debug("sensitivity updated", logger.Float64("value", v))
	return nil
}

// Value returns the current sensitivity
func (sc *SensitivityController) Value() float64 {
	return sc.value.Load().(float64)
}

// Gain returns k
func (sc *SensitivityController) Gain() float64 {
	return sc.gain
}

// Apply scales frame with the current sensitivity and returns a new slice.
func (sc *SensitivityController) Apply(frame []float64) []float64 {
	return sc.ApplyWith(frame, sc.Value())
}

// ApplyWith scales frame with sensitivity s and returns a new slice of the
// same length with every value in [0, 1]. Callers that need one value for a
// whole cycle snapshot Value() once and pass it here.
func (sc *SensitivityController) ApplyWith(frame []float64, s float64) []float64 {
	factor := 1 + sc.gain*s
	out := make([]float64, len(frame))
	for i, v := range frame {
		out[i] = clamp01(v * factor)
	}
	return out
}

func validateSensitivity(v float64) error {
	// NaN fails both comparisons, so test the accepted range
	if v >= 0 && v <= 1 {
		return nil
	}
	return errors.New(audiocore.ErrInvalidSensitivity).
		Component("sensitivity").
		Category(errors.CategoryValidation).
		Context("value", v).
		Build()
}

func clamp01(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v > 0:
		return v
	default:
		// negative and NaN
		return 0
	}
}
